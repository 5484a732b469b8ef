package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluxbase-eu/filterable/internal/api"
	"github.com/fluxbase-eu/filterable/internal/cache"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/fluxbase-eu/filterable/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var fixturesFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server.

With database.enabled the list endpoints query PostgreSQL. Otherwise rows
are served from memory, optionally loaded from a JSON fixtures file shaped
{"events": [{"name": "boot", ...}]}.

Examples:
  filterable serve
  filterable serve --config /etc/filterable/filterable.yaml
  filterable serve --fixtures testdata/events.json`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&fixturesFile, "fixtures", "", "JSON rows served from memory when the database is disabled")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(cfg.Database); err != nil {
				return err
			}
		}
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	cat, err := loadCatalog(ctx, cfg.Catalog, pool)
	if err != nil {
		return err
	}

	var exec database.Executor
	if pool != nil {
		exec = database.NewPostgresExecutor(pool)
	} else {
		mem, err := loadFixtures(fixturesFile, cat)
		if err != nil {
			return err
		}
		exec = mem
		log.Warn().Msg("Database disabled, serving rows from memory")
	}

	metrics := observability.NewMetrics()
	if cfg.Redis.URL != "" {
		counts, err := cache.ConnectRedis(ctx, cfg.Redis.URL, cfg.Redis.CountTTL)
		if err != nil {
			return err
		}
		defer counts.Close()
		exec = cache.NewCachedExecutor(exec, counts, metrics)
		log.Info().Dur("ttl", cfg.Redis.CountTTL).Msg("Row count cache enabled")
	}

	server := api.NewServer(cfg, cat, exec, metrics)
	for _, table := range cat.Tables() {
		log.Info().Str("table", table.QualifiedName()).Int("fields", len(table.FieldNames())).Msg("Serving table")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
