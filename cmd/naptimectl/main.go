// Command naptimectl evolves, plays and inspects forage team strategies.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"naptime/internal/logging"
	"naptime/internal/metrics"
	"naptime/pkg/naptime"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// usageError marks invalid arguments; they exit with exitUsage.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger

	verbose      bool
	storeKind    string
	dbPath       string
	artifactsDir string
	// started is set once a command's own logic begins, so errors raised
	// earlier by flag and argument parsing count as usage errors.
	started bool
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return exitOK
	}
	var usage *usageError
	if errors.As(err, &usage) || !a.started {
		fmt.Fprintf(stderr, "Error: %v\n%s", err, cmd.UsageString())
		return exitUsage
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitFailure
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "naptimectl",
		Short:         "Evolve forage team strategies written as S-expression programs",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			a.logger = logging.New(a.stderr, a.verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("missing command")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&a.storeKind, "store", "memory", "run store backend: memory|sqlite")
	flags.StringVar(&a.dbPath, "db-path", "naptime.db", "sqlite database path")
	flags.StringVar(&a.artifactsDir, "artifacts", "", "directory for per-run artifact files")

	root.AddCommand(a.evolveCmd(), a.playCmd(), a.validateCmd(), a.runsCmd(), a.exportCmd())
	return root
}

func (a *app) client(recorder *metrics.Recorder) (*naptime.Client, error) {
	return naptime.New(naptime.Options{
		StoreKind:    a.storeKind,
		DBPath:       a.dbPath,
		ArtifactsDir: a.artifactsDir,
		Logger:       a.logger,
		Metrics:      recorder,
	})
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments, got %q", cmd.Name(), args)
	}
	return nil
}
