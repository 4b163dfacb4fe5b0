package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/okosplazma-sms/app/handlers"
	"github.com/amirphl/okosplazma-sms/app/middleware"
	"github.com/amirphl/okosplazma-sms/app/router"
	"github.com/amirphl/okosplazma-sms/app/services"
	businessflow "github.com/amirphl/okosplazma-sms/business_flow"
	"github.com/amirphl/okosplazma-sms/config"
	"github.com/spf13/cobra"
)

// Application represents the wired HTTP application
type Application struct {
	router  router.Router
	config  *config.ProductionConfig
	logger  *log.Logger
	closers []io.Closer
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operator HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadProductionConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := config.ValidateServerConfig(cfg); err != nil {
				return err
			}

			app, err := initializeApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.close()

			return app.run()
		},
	}
}

func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	logger, closer, err := newAppLogger(cfg.Logging, "[okosplazma-sms] ")
	if err != nil {
		return nil, err
	}

	tokenService, err := services.NewTokenService(cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	authFlow, err := businessflow.NewAuthFlow(cfg.Operators.Credentials, cfg.Operators.BcryptCost, tokenService, cfg.JWT.AccessTokenTTL, logger)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to create auth flow: %w", err)
	}
	// clear-text passwords are not needed past this point
	cfg.Operators.Credentials = nil

	gateway := services.NewGatewayClient(cfg.Gateway)
	batchFlow := businessflow.NewBatchFlow(gateway, cfg.Batch.Concurrency, logger)

	authHandler := handlers.NewAuthHandler(authFlow)
	batchHandler := handlers.NewBatchHandler(
		batchFlow,
		services.NewSpreadsheetReader(cfg.Batch.MaxRows),
		services.NewReportWriter(),
		cfg.Server.RequestTimeout,
		logger,
	)

	r := router.NewFiberRouter(cfg, authHandler, batchHandler, middleware.NewAuthMiddleware(tokenService), logger)
	r.SetupRoutes()

	logger.Printf("Application initialized: gateway_mode=%s workers=%d operators=%d",
		cfg.Gateway.Mode, cfg.Batch.Concurrency, len(authFlow.Operators()))

	return &Application{
		router:  r,
		config:  cfg,
		logger:  logger,
		closers: []io.Closer{closer},
	}, nil
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
		errChan <- a.router.Start(address)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server stopped: %w", err)
	case <-sigChan:
	}

	a.logger.Println("Shutting down gracefully...")
	if err := a.router.Shutdown(a.config.Server.ShutdownTimeout); err != nil {
		a.logger.Printf("Error during shutdown: %v", err)
	}
	a.logger.Println("Server stopped")
	return nil
}

func (a *Application) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}
