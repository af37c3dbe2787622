// Package cmd defines and implements the CLI commands for the binbuddy executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/app"
	"github.com/JakeFAU/binbuddy/internal/config"
	"github.com/JakeFAU/binbuddy/internal/domain"
	"github.com/JakeFAU/binbuddy/internal/flow"
	"github.com/JakeFAU/binbuddy/internal/logging"
)

// appKeyType is the key for storing the Service in the context.
type appKeyType string

const appKey appKeyType = "app"

// Service is the part of the application the commands use. Tests replace it
// through newApp.
type Service interface {
	Run(ctx context.Context) error
	Lookup(barcode string) flow.Stream[domain.Result[domain.Product]]
	Close(ctx context.Context) error
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Service, error) {
	return app.Build(ctx, cfg, logger)
}

type rootOptions struct {
	cfgFile string
	logger  *zap.Logger
	cfg     config.Config
	svc     Service
}

// close releases whatever PersistentPreRunE built, even when the command failed.
func (o *rootOptions) close(ctx context.Context) error {
	if o.logger != nil {
		defer func() { _ = o.logger.Sync() }()
	}
	if o.svc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ShutdownTimeout())
	defer cancel()
	if err := o.svc.Close(ctx); err != nil {
		return fmt.Errorf("close application: %w", err)
	}
	return nil
}

// newRootCmd creates and configures the root command.
func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binbuddy",
		Short: "Find the right bin for a product's packaging.",
		Long: `binbuddy looks up barcodes on OpenFoodFacts, classifies the packaging
into German waste categories, detects bottle deposits and keeps a scan
history with rewards.`,
		SilenceUsage: true,

		// Builds the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)
			opts.cfg, opts.logger = cfg, logger

			svc, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			opts.svc = svc
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, svc))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLookupCmd())
	return cmd
}

func resolveApp(ctx context.Context) (Service, error) {
	svc, ok := ctx.Value(appKey).(Service)
	if !ok || svc == nil {
		return nil, errors.New("application services not initialized")
	}
	return svc, nil
}

// Execute is the main entry point.
func Execute() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := &rootOptions{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, opts.close(ctx))
}
