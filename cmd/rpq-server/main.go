package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jeremywhuff/rpq"
	"github.com/jeremywhuff/rpq/internal/config"
	"github.com/jeremywhuff/rpq/internal/logging"
	"github.com/jeremywhuff/rpq/internal/server"
	"github.com/jeremywhuff/rpq/internal/users"
	"github.com/jeremywhuff/rpq/store/mongostore"
	"github.com/jeremywhuff/rpq/store/sqlstore"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

var flagConfig string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rpq-server",
		Short:        "Users CRUD service built on rpq request pipelines",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (yaml, json or toml); RPQ_* env vars override it")

	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
			slog.SetDefault(logger)
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer closeStore()
			logger.Info("store opened", "driver", cfg.Store.Driver)

			engine := server.NewEngine(server.Options{
				Store:           store,
				Logger:          logger,
				MaxResponseSize: cfg.HTTP.MaxResponseSize,
				RateLimit:       cfg.HTTP.RateLimit,
				RateBurst:       cfg.HTTP.RateBurst,
				BcryptCost:      cfg.Users.BcryptCost,
			})

			return server.Run(ctx, cfg.Server.Addr, engine, logger)
		},
	}
}

func openStore(ctx context.Context, cfg config.StoreConfig) (rpq.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongostore.Connect(ctx, cfg.URI, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		return s, func() { _ = s.Close(context.Background()) }, nil

	case config.DriverSQLite, config.DriverPgx:
		s, err := sqlstore.Open(cfg.Driver, cfg.URI)
		if err != nil {
			return nil, nil, err
		}
		if err := s.EnsureCollection(ctx, users.Collection); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("ensure %s collection: %w", users.Collection, err)
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}
