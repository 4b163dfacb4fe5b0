// Package main provides the entry point for the OkosPlazma SMS reminder tool
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/amirphl/okosplazma-sms/config"
	"github.com/amirphl/okosplazma-sms/utils"
	"github.com/spf13/cobra"
)

// errNotAllSucceeded makes the process exit non-zero without printing usage
var errNotAllSucceeded = errors.New("not every message was sent")

var rootCmd = &cobra.Command{
	Use:           "okosplazma-sms",
	Short:         "Send appointment reminder SMS messages from a spreadsheet",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSendCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNotAllSucceeded) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newAppLogger builds the application logger from the logging configuration
func newAppLogger(cfg config.LoggingConfig, prefix string) (*log.Logger, io.Closer, error) {
	return utils.NewLogger(utils.LoggerOptions{
		Prefix:     prefix,
		Output:     cfg.Output,
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
}
