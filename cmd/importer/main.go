package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"wp_importer/internal/assets"
	"wp_importer/internal/config"
	"wp_importer/internal/content"
	"wp_importer/internal/publisher"
	"wp_importer/internal/scheduler"
	"wp_importer/internal/service"
	"wp_importer/internal/source/wordpress"
	"wp_importer/internal/storage"
	"wp_importer/internal/storage/disk"
	"wp_importer/internal/storage/postgres"
	"wp_importer/internal/transform"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "importer",
		Short:        "Import WordPress posts into the local CMS",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(newImportCmd(&configPath))
	root.AddCommand(newWatchCmd(&configPath))

	return root
}

func newImportCmd(configPath *string) *cobra.Command {
	var (
		page     int
		perPage  int
		truncate bool
		fetchAll bool
	)

	cmd := &cobra.Command{
		Use:   "import [resource]",
		Short: "Run one import of the given resource (default posts)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			opts := service.ImportOptions{
				Resource: app.cfg.Import.Resource,
				Page:     page,
				PerPage:  perPage,
				Truncate: truncate,
				FetchAll: fetchAll,
			}
			if len(args) > 0 {
				opts.Resource = args[0]
			}

			ctx := signalContext(app.logger)
			stats, err := app.importer.Import(ctx, opts)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"imported %d, updated %d, unchanged %d, errors %d (%s)\n",
				stats.Imported, stats.Updated, stats.Unchanged, stats.Errors, stats.Duration,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "start page (default from config)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "page size (default from config)")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "wipe local posts, authors, categories and tags first")
	cmd.Flags().BoolVar(&fetchAll, "all", false, "fetch every page until the remote runs out")

	return cmd
}

func newWatchCmd(configPath *string) *cobra.Command {
	var fetchAll bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the import on a fixed interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer app.close()

			opts := service.ImportOptions{
				Resource: app.cfg.Import.Resource,
				Page:     app.cfg.Import.Page,
				PerPage:  app.cfg.Import.PerPage,
				FetchAll: fetchAll,
			}

			sched := scheduler.NewScheduler(app.importer, opts, app.cfg.Import.Interval, app.logger)

			ctx := signalContext(app.logger)
			if err := sched.Start(ctx); err != nil && err != context.Canceled {
				return fmt.Errorf("scheduler: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fetchAll, "all", false, "fetch every page on each run")

	return cmd
}

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqlx.DB
	rabbitMQ *publisher.RabbitMQ
	importer *service.Importer
}

func (a *app) close() {
	if a.rabbitMQ != nil {
		a.rabbitMQ.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database")

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	blobStore, err := disk.New(cfg.Storage.Root)
	if err != nil {
		rabbitMQ.Close()
		db.Close()
		return nil, err
	}

	mirror := assets.New(blobStore, cfg.API.Timeout, logger)

	rewriter := content.NewRewriter(content.Config{
		LegacyHost:  cfg.Rewrite.LegacyHost,
		ArticlePath: cfg.Rewrite.ArticlePath,
		AssetPath:   cfg.Rewrite.AssetPath,
	}, mirror, logger)

	client := wordpress.New(wordpress.Config{
		BaseURL:     cfg.API.URL,
		Timeout:     cfg.API.Timeout,
		MaxAttempts: cfg.API.Retry.MaxAttempts,
		RetryDelay:  cfg.API.Retry.Delay,
		After:       cfg.API.After,
	}, logger)

	transformer, err := transform.NewFromConfig(cfg.Bindings.Transformers, mirror, logger)
	if err != nil {
		rabbitMQ.Close()
		db.Close()
		return nil, err
	}

	postStore, err := storage.NewPostStore(cfg.Bindings.PostStore, db)
	if err != nil {
		rabbitMQ.Close()
		db.Close()
		return nil, err
	}
	authorStore, err := storage.NewAuthorStore(cfg.Bindings.AuthorStore, db)
	if err != nil {
		rabbitMQ.Close()
		db.Close()
		return nil, err
	}
	categoryStore, err := storage.NewCategoryStore(cfg.Bindings.CategoryStore, db)
	if err != nil {
		rabbitMQ.Close()
		db.Close()
		return nil, err
	}

	importer := service.NewImporter(
		client,
		transformer,
		rewriter,
		postStore,
		authorStore,
		categoryStore,
		postgres.NewTagStore(db),
		postgres.NewImportStateStore(db),
		postgres.NewTruncator(db),
		postgres.NewTransactionManager(db),
		rabbitMQ,
		logger,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		rabbitMQ: rabbitMQ,
		importer: importer,
	}, nil
}

func signalContext(logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	return ctx
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
