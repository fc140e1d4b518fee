package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/render"
)

// QueueCommand lists dead-lettered messages. TUI is not supported here:
// the dashboard views are scoped to single-entity inspection, while this
// is a list.
func QueueCommand() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Inspect the message queue",
		Subcommands: []*cli.Command{
			queueDeadLettersCommand(),
		},
	}
}

func queueDeadLettersCommand() *cli.Command {
	return &cli.Command{
		Name:  "dead-letters",
		Usage: "List dead-lettered messages",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "actor-id",
				Usage: "Filter by actor ID (all actors if omitted)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of messages to return",
				Value: 50,
			},
		),
		Action: queueDeadLettersAction,
	}
}

func queueDeadLettersAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for queue dead-letters", 1)
	}

	rd, err := openReader(c)
	if err != nil {
		return err
	}

	letters, err := rd.DeadLetters(c.Context, c.String("actor-id"), c.Int("limit"))
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(letters)
}
