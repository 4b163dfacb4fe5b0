package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/okosplazma-sms/app/services"
	businessflow "github.com/amirphl/okosplazma-sms/business_flow"
	"github.com/amirphl/okosplazma-sms/config"
	"github.com/amirphl/okosplazma-sms/models"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	file        string
	template    string
	dryRun      bool
	report      string
	concurrency int
}

func newSendCmd() *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one reminder per spreadsheet row",
		Long: "Reads the first sheet of an xlsx file (name, phone, appointment date-time; no header row),\n" +
			"renders the selected template for every valid row and sends it through the SMS gateway.\n" +
			"Exits with status 1 unless every message was sent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "xlsx file with the appointments")
	flags.StringVarP(&opts.template, "template", "t", "", "message template: donation or appointment")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "render the messages without sending")
	flags.StringVar(&opts.report, "report", "", "write an xlsx report of the batch to this path")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "parallel gateway requests (overrides BATCH_CONCURRENCY)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func runSend(cmd *cobra.Command, opts *sendOptions) error {
	kind, err := models.ParseTemplateKind(opts.template)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.dryRun {
		// nothing leaves the process, so no gateway key is needed
		cfg.Gateway.Mode = "mock"
	}
	if opts.concurrency > 0 {
		cfg.Batch.Concurrency = opts.concurrency
	}
	if err := config.ValidateProductionConfig(cfg); err != nil {
		return err
	}

	logger, closer, err := newAppLogger(cfg.Logging, "[okosplazma-sms] ")
	if err != nil {
		return err
	}
	defer closer.Close()

	rows, err := readSpreadsheet(opts.file, cfg.Batch.MaxRows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w", opts.file, businessflow.ErrNoRows)
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		preview, err := businessflow.NewBatchFlow(nil, 1, logger).Preview(rows, kind)
		if err != nil {
			return err
		}
		for _, item := range preview.Items {
			fmt.Fprintf(out, "row %d %s: %s\n", item.Recipient.Row, item.Recipient.Phone, item.Message)
		}
		fmt.Fprintf(out, "dry run: %d messages, %d rows rejected\n", len(preview.Items), preview.RowsRejected)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flow := businessflow.NewBatchFlow(
		services.NewGatewayClient(cfg.Gateway),
		cfg.Batch.Concurrency,
		logger,
		businessflow.WithDispatchObserver(func(_ int, r models.DispatchResult) {
			printDispatch(out, r)
		}),
	)

	result, runErr := flow.Run(ctx, rows, kind)
	if result == nil {
		return runErr
	}

	fmt.Fprintf(out, "batch %s: %d sent, %d failed, %d rows rejected, all_succeeded=%t\n",
		result.ID, result.SentCount, result.FailedCount, result.RowsRejected, result.AllSucceeded)

	if opts.report != "" {
		if err := writeReport(opts.report, result); err != nil {
			return err
		}
		fmt.Fprintf(out, "report written to %s\n", opts.report)
	}

	if runErr != nil {
		return runErr
	}
	if !result.AllSucceeded {
		return errNotAllSucceeded
	}
	return nil
}

func readSpreadsheet(path string, maxRows int) ([]models.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()
	return services.NewSpreadsheetReader(maxRows).ReadRows(f)
}

func writeReport(path string, result *models.BatchResult) error {
	_, data, err := services.NewReportWriter().WriteBatchReport(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func printDispatch(out io.Writer, r models.DispatchResult) {
	if r.Failed() {
		fmt.Fprintf(out, "FAILED row %d %s: %s\n", r.Recipient.Row, r.Recipient.Phone, r.Diagnostic)
		return
	}
	fmt.Fprintf(out, "SENT   row %d %s (%s)\n", r.Recipient.Row, r.Recipient.Phone, r.Body)
}
