package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/iata-code-fetcher/internal/app"
	"github.com/JakeFAU/iata-code-fetcher/internal/codes"
)

// newNormalizeCmd creates the 'normalize' subcommand.
func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <carrier|airport> <crawl-log>",
		Short: "Deduplicates, renames, and sorts a crawl log into a dataset",
		Long: `Reads a crawl log, drops duplicate records, renames catalog columns to
canonical field names, sorts the result, and writes <log>_processed.jsonl next
to the input. When storage or pubsub is configured the dataset is then
uploaded and announced.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			kind, err := codes.ParseKind(args[0])
			if err != nil {
				return err
			}
			return normalizeAndExport(cmd.Context(), appInstance, kind, args[1])
		},
	}
}

func normalizeAndExport(ctx context.Context, a *app.App, kind codes.Kind, path string) error {
	res, err := a.Pipeline().Normalize(ctx, path, kind)
	if err != nil {
		return err
	}
	if !a.Exporter().Enabled() {
		return nil
	}
	note, err := a.Exporter().Export(ctx, res)
	if err != nil {
		return err
	}
	a.Logger().Info("dataset exported",
		zap.Stringer("kind", kind),
		zap.String("uri", note.URI),
		zap.Int("records", note.Records),
	)
	return nil
}
