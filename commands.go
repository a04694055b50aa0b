package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"catalog/internal/config"
	"catalog/internal/export"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/database"
	"catalog/pkg/rabbitmq"
	"catalog/pkg/telemetry"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Product catalog query service",
		Long: `catalog serves a small web front end over the Products table:
search a product by its identifier or list the whole catalog.

Running catalog without a sub-command starts the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.AddCommand(newServeCmd(), newQueryCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newQueryCmd() *cobra.Command {
	var (
		id     string
		all    bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a catalog query and print the result",
		Long: `Run a catalog query against the configured database.

--id searches by product identifier, --all lists every product.
When both are given the search runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := services.Request{
				Mode:       services.ModeFromTriggers(cmd.Flags().Changed("id"), all),
				SearchTerm: id,
			}
			if req.Mode == services.ModeNone {
				return fmt.Errorf("one of --id or --all is required")
			}
			return runQuery(cmd, req, format)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Product identifier to search for")
	cmd.Flags().BoolVar(&all, "all", false, "List every product")
	cmd.Flags().StringVarP(&format, "format", "o", export.FormatTable, "Output format: table, csv or json")
	return cmd
}

// loadConfig reads and validates the configuration. Any error here is fatal.
func loadConfig() (*config.Config, error) {
	v, err := config.NewViper()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// --- Configuration ---
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// --- Tracing ---
	tp, err := telemetry.InitTracer(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	// --- Database ---
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	// --- Event publishing ---
	var publisher services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL})
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Println("RABBITMQ_URL is not set. Catalog query events are disabled.")
	}

	// --- Services & HTTP ---
	productRepo := repositories.NewGORMProductRepository(db)
	catalogService := services.NewCatalogService(productRepo, publisher)
	app := NewApp(cfg, catalogService)

	listenErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.App.Port)
		listenErr <- app.Listen(cfg.App.Port)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}

func runQuery(cmd *cobra.Command, req services.Request, format string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	catalogService := services.NewCatalogService(repositories.NewGORMProductRepository(db), nil)
	result, err := catalogService.Dispatch(ctx, req)
	if err != nil {
		return fmt.Errorf("%s query failed: %w", req.Mode, err)
	}
	if !result.Queried {
		fmt.Fprintln(cmd.ErrOrStderr(), "No query ran: the product identifier is empty.")
		return nil
	}
	return export.Write(cmd.OutOrStdout(), format, result.Products)
}
