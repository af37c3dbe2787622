package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/apperr"
	"github.com/JakeFAU/binbuddy/internal/classify"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/pfand"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look up a barcode and print every result as it arrives",
		Long: `Resolves a barcode through the cache, the local store and OpenFoodFacts.
Stored data is printed first when available, followed by a refreshed result.
Ctrl-C cancels the lookup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runLookup(ctx, svc, args[0], cmd.OutOrStdout())
		},
	}
}

// runLookup prints each lookup result and returns the last failure when no
// product was found at all.
func runLookup(ctx context.Context, svc Service, barcode string, out io.Writer) error {
	var (
		found   bool
		lastErr error
	)
	classifier := classify.New()
	detector := pfand.New()

	c := flow.NewCollector(svc.Lookup(barcode),
		func(res domain.Result[domain.Product]) {
			if !res.OK {
				lastErr = res.Err
				if res.Err != nil {
					fmt.Fprintf(out, "error: %s\n", userMessage(res.Err))
				}
				return
			}
			found = true
			printProduct(out, res, classifier.Classify(&res.Data), detector.Check(&res.Data))
		},
		func(err error) { lastErr = err },
		flow.WithContext(ctx),
		flow.WithLogger(zap.L()),
	)
	c.Start()
	<-c.Done()

	switch {
	case c.State() == flow.Cancelled:
		return fmt.Errorf("lookup %s: %w", barcode, context.Canceled)
	case !found && lastErr != nil:
		return fmt.Errorf("lookup %s: %w", barcode, lastErr)
	}
	return nil
}

func printProduct(out io.Writer, res domain.Result[domain.Product], cat domain.WasteCategory, info domain.PfandInfo) {
	source := "fresh"
	if res.FromCache {
		source = "cached"
	}
	p := res.Data
	fmt.Fprintf(out, "[%s] %s", source, p.Barcode)
	if p.Name != "" {
		fmt.Fprintf(out, " %s", p.Name)
	}
	if p.Brand != "" {
		fmt.Fprintf(out, " (%s)", p.Brand)
	}
	fmt.Fprintf(out, "\n  bin: %s\n", cat.Name("de"))
	if info.HasPfand {
		fmt.Fprintf(out, "  pfand: %s\n", info.FormattedAmount())
	}
	if w := res.Warning(); w != "" {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
}

func userMessage(err error) string {
	if appErr := apperr.As(err); appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return err.Error()
}
