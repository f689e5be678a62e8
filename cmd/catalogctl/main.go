// Command catalogctl runs administrative tasks against the catalog store
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"brand-catalog-service/internal/auth"
	"brand-catalog-service/internal/catalog"
	"brand-catalog-service/internal/config"
	"brand-catalog-service/internal/export"
	"brand-catalog-service/internal/jobs"
	"brand-catalog-service/internal/logging"
	"brand-catalog-service/internal/metrics"
	"brand-catalog-service/internal/store"
)

var (
	// Global flags
	userID   string
	logLevel string

	logger *zap.Logger
	deps   *services
)

// services is everything a command may need, built once per invocation.
type services struct {
	store    store.Store
	catalog  *catalog.Service
	exporter *export.Exporter
	jobs     *jobs.Service
}

func newServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*services, error) {
	var st store.Store
	switch cfg.StoreDriver {
	case "memory":
		st = store.NewMemoryStore(logger)
	default:
		db, err := store.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		st = store.NewPostgresStore(db, logger)
	}
	return wire(st, nil, logger), nil
}

func wire(st store.Store, archiver export.Archiver, logger *zap.Logger) *services {
	m := metrics.New()
	svc := catalog.NewService(st, logger, m)
	return &services{
		store:    st,
		catalog:  svc,
		exporter: export.NewExporter(st, archiver, logger, m),
		jobs:     jobs.NewService(st, svc.Resolver(), logger, m),
	}
}

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Administrative tasks for the brand catalog service",
	Long: `catalogctl talks to the catalog store directly, using the same
environment configuration as the service (STORE_DRIVER, POSTGRES_*).

Every command acts on behalf of one user and sees only what that user owns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err = logging.New(cfg.LogLevel, cfg.AppEnv)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		deps, err = newServices(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if deps != nil {
			_ = deps.store.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func currentUser() auth.User { return auth.User{ID: userID} }

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id the command acts as")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(exportCmd, promptsCmd, jobsCmd)
	promptsCmd.AddCommand(promptsImportCmd)
	jobsCmd.AddCommand(jobsCleanupCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: generated export name)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
