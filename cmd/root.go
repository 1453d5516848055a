package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/app"
	"github.com/JakeFAU/iata-code-fetcher/internal/config"
	"github.com/JakeFAU/iata-code-fetcher/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. Tests replace it to inject loggers.
var newApp = func(ctx context.Context, cfgPath string) (*app.App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

// session holds what the root command built so it can be torn down even
// when a subcommand fails.
type session struct {
	app *app.App
}

// newRootCmd creates and configures the root command.
func newRootCmd(s *session) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "iatafetcher",
		Short: "Builds IATA carrier and airport code datasets.",
		Long: `iatafetcher walks every possible IATA carrier (2-character) and airport
(3-character) code against the public code search, appends each result row
to a crawl log, and normalizes the logs into deduplicated, sorted datasets.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON); IATA_* env vars override it")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newNormalizeCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command line in args and always closes the app.
func run(ctx context.Context, args []string) error {
	var s session
	root := newRootCmd(&s)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if s.app != nil {
		if cerr := s.app.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// logClose closes c and logs a failure.
func logClose(logger *zap.Logger, what string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logger.Warn("failed to close "+what, zap.Error(err))
	}
}
