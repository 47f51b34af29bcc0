package main

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BiggestM/EMNISTByClass/config"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

type globalOptions struct {
	configFile string
	logDev     bool
	verbosity  int
}

func newRootCmd(fs afero.Fs, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "emnist",
		Short:        "Train and evaluate a classifier on EMNIST ByClass",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	pf.BoolVar(&opts.logDev, "log-dev", false, "human readable logs instead of JSON")
	pf.IntVarP(&opts.verbosity, "verbosity", "v", 0, "log verbosity")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the full load, scale, fit and evaluate pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(fs, opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			log, sync := newLogger(stderr, opts.logDev, opts.verbosity)
			defer sync()
			return runPipeline(cmd.Context(), fs, cfg, log, stdout, stderr)
		},
	}
	config.AddFlags(run.Flags())

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(run, versionCmd)
	return root
}

// newLogger returns a logr.Logger backed by zap writing to w. Verbosity v
// enables logr V-levels up to v.
func newLogger(w io.Writer, dev bool, v int) (logr.Logger, func()) {
	var enc zapcore.Encoder
	if dev {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(zapcore.Level(-v)))
	zl := zap.New(core)
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}
