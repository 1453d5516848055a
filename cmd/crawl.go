package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/app"
	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
	"github.com/JakeFAU/iata-code-fetcher/internal/progress"
)

type crawlOptions struct {
	resume    bool
	normalize bool
}

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	var opts crawlOptions
	cmd := &cobra.Command{
		Use:   "crawl [carrier|airport...]",
		Short: "Probes every code of the given kinds and appends results to the crawl logs",
		Long: `Enumerates the whole code space of each kind (carrier, then airport, when no
kind is given), queries the catalog for every code, and appends the result
rows to the kind's crawl log. Codes that fail after retries are logged and
skipped.`,
		Args: cobra.MaximumNArgs(len(codes.Kinds())),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawlCommand(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "continue after the last checkpointed code")
	cmd.Flags().BoolVar(&opts.normalize, "normalize", false, "normalize (and export) each log after its crawl finishes")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, args []string, opts crawlOptions) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	kinds, err := parseKinds(args)
	if err != nil {
		return err
	}
	if err := appInstance.ServeMetrics(); err != nil {
		return err
	}

	reporter := appInstance.Reporter()
	for _, kind := range kinds {
		if err := crawlKind(cmd.Context(), appInstance, reporter, kind, opts); err != nil {
			return err
		}
	}
	return nil
}

func crawlKind(ctx context.Context, a *app.App, reporter *progress.Reporter, kind codes.Kind, opts crawlOptions) error {
	logger := a.Logger().With(zap.Stringer("kind", kind))
	log, err := a.OpenLog(kind)
	if err != nil {
		return err
	}
	defer logClose(logger, "crawl log", log)

	summary, err := a.Driver(opts.resume, reporter).Run(ctx, kind, log)
	if err != nil {
		reporter.Fail(kind, summary.Duration, err)
		return err
	}
	logger.Info("crawl finished",
		zap.Int("processed", summary.Processed),
		zap.Int("records", summary.Records),
		zap.Int("skipped", summary.Skipped),
		zap.Int("malformed", summary.Malformed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
		zap.String("file", log.Path()),
	)

	if !opts.normalize {
		return nil
	}
	if err := log.Close(); err != nil {
		return fmt.Errorf("close %s crawl log: %w", kind, err)
	}
	return normalizeAndExport(ctx, a, kind, log.Path())
}

func parseKinds(args []string) ([]codes.Kind, error) {
	if len(args) == 0 {
		return codes.Kinds(), nil
	}
	kinds := make([]codes.Kind, 0, len(args))
	for _, arg := range args {
		kind, err := codes.ParseKind(arg)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
