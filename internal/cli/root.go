// Package cli builds the bqtools command tree. Global settings flow through
// viper; each subcommand turns its flags into app options.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bqtools/internal/appcore"
	"bqtools/internal/config"
	"bqtools/internal/logging"
	"bqtools/internal/version"
)

// env is what every subcommand sees once the root has run.
type env struct {
	v        *viper.Viper
	settings config.Settings
	stdout   io.Writer
	stderr   io.Writer
	ran      bool // a RunE was entered, so errors come from the command itself
}

func newRoot(e *env) *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:   "bqtools",
		Short: "Encode, decode, search and stream binary sequencing record containers",
		Long: `bqtools works with a compact binary container for sequencing records.

"encode" packs FASTA/FASTQ (single, paired or interleaved, plain or
compressed) into a container; the other commands read it back out,
filter it, sample it, search it or fan it out to named pipes.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(e.v, configFile)
			if err != nil {
				return &appcore.UsageError{Err: err}
			}
			e.settings = s
			logger, err := logging.New(e.stderr, s.LogLevel, s.Quiet)
			if err != nil {
				return &appcore.UsageError{Err: err}
			}
			cmd.SetContext(logging.Attach(cmd.Context(), logger))
			return nil
		},
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return &appcore.UsageError{Err: err} })

	pf := root.PersistentFlags()
	pf.IntP("threads", "T", 0, "number of worker threads (0 = all CPUs)")
	pf.String("log-level", "info", "log level: debug | info | warn | error")
	pf.Bool("quiet", false, "only log errors")
	pf.StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	for _, name := range []string{"threads", "log-level", "quiet"} {
		_ = e.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		newEncodeCmd(e),
		newDecodeCmd(e),
		newCatCmd(e),
		newCountCmd(e),
		newSampleCmd(e),
		newGrepCmd(e),
		newPipeCmd(e),
	)
	return root
}

// Execute runs argv and returns the process exit status.
func Execute(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	e := &env{v: config.New(), stdout: stdout, stderr: stderr}
	root := newRoot(e)
	root.SetArgs(argv)
	return appcore.Run(ctx, stderr, func(ctx context.Context) error {
		err := root.ExecuteContext(ctx)
		if err != nil && !e.ran && appcore.ExitCode(err) == appcore.ExitRuntime {
			// Argument and command-name errors raised by cobra itself.
			err = &appcore.UsageError{Err: err}
		}
		return err
	})
}

// run marks the command as started and hands its context to fn.
func (e *env) run(fn func(ctx context.Context, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e.ran = true
		return fn(cmd.Context(), args)
	}
}
