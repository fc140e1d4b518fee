// actorctl is the read-only operator CLI for an actorflowd deployment.
// It opens the same store backends the daemon is configured to use and
// answers ID-addressed inspection queries; it never enqueues a message or
// mutates store state.
//
// Unlike cmd/actorflowd, which logs through log/slog for structured
// operational logging, actorctl uses zap for its own CLI diagnostics —
// the two are deliberately separate: one is a long-running daemon's
// event log, the other a one-shot command's error reporting.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/cmd"
	"github.com/codeready-toolchain/actorflow/pkg/version"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "actorctl: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	app := &cli.App{
		Name:    "actorctl",
		Usage:   "Read-only operator CLI for actorflowd",
		Version: version.Full(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Path to the actorflowd configuration directory",
				EnvVars: []string{"CONFIG_DIR"},
				Value:   "./deploy/config",
			},
		},
		Commands: []*cli.Command{
			cmd.ConfigCommand(),
			cmd.ActorCommand(),
			cmd.PipelineCommand(),
			cmd.QueueCommand(),
			cmd.VersionCommand(),
		},
		ExitErrHandler: exitErrHandler(logger),
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func exitErrHandler(logger *zap.Logger) cli.ExitErrHandlerFunc {
	return func(_ *cli.Context, err error) {
		if err == nil {
			return
		}

		var exitCoder cli.ExitCoder
		if errors.As(err, &exitCoder) {
			code := exitCoder.ExitCode()
			if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
				logger.Error(msg)
			}
			os.Exit(code)
		}

		logger.Error("actorctl command failed", zap.Error(err))
		os.Exit(1)
	}
}
