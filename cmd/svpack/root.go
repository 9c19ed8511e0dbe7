package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tain335/svpack/internal/config"
	packerrors "github.com/tain335/svpack/internal/errors"
	"github.com/tain335/svpack/internal/logger"
	"github.com/tain335/svpack/pkg/api"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Set via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type rootOptions struct {
	configFile string
	root       string
	verbosity  int
	watch      bool
}

func (o *rootOptions) load(forceWatch bool) (*config.Config, error) {
	watch := o.watch || forceWatch
	loader := config.NewLoader()
	cfg, err := loader.Load(config.LoaderOptions{
		ConfigFile: o.configFile,
		Root:       o.root,
		Watch:      &watch,
	})
	if err != nil {
		return nil, err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		log.Debug().Str("file", used).Msg("config loaded")
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signalContext(ctx)
	defer stop()
	if cfg.Watch {
		return api.Watch(ctx, cfg)
	}
	_, err := api.Build(ctx, cfg)
	return err
}

// NewRootCmd builds the svpack command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "svpack",
		Short: "Bundle a Svelte app with esbuild",
		Long: `svpack bundles a Svelte application into build/bundle.js and
build/bundle.css. Production builds are minified; development builds
watch the sources, run the dev server and reload the browser.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(cmd.ErrOrStderr(), opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default <root>/svpack.yaml)")
	flags.StringVar(&opts.root, "root", "", "project directory (default is the working directory)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "rebuild on change (development mode)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "build",
			Short: "Build the bundle (production unless --watch or ROLLUP_WATCH)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load(false)
				if err != nil {
					return reportError(cmd, err)
				}
				return reportError(cmd, run(cmd.Context(), cfg))
			},
		},
		&cobra.Command{
			Use:   "dev",
			Short: "Build in development mode and watch for changes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load(true)
				if err != nil {
					return reportError(cmd, err)
				}
				return reportError(cmd, run(cmd.Context(), cfg))
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "svpack version %s\n", version)
				fmt.Fprintf(out, "  commit: %s\n", commit)
				fmt.Fprintf(out, "  built:  %s\n", date)
			},
		},
	)
	return rootCmd
}

func reportError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Error: %v\n", err)
	var packErr *packerrors.PackError
	if errors.As(err, &packErr) {
		keys := maps.Keys(packErr.Details)
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %v\n", key, packErr.Details[key])
		}
	}
	switch packerrors.GetErrorCode(err) {
	case packerrors.ErrConfigLoad:
		fmt.Fprintln(out, "Run svpack from the project root or pass --root.")
	case packerrors.ErrProcess:
		fmt.Fprintln(out, "Check the serve.command setting.")
	}
	return err
}
