package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/render"
)

// ActorCommand inspects one actor's durable journal by ID.
func ActorCommand() *cli.Command {
	return &cli.Command{
		Name:  "actor",
		Usage: "Inspect an actor's journal",
		Subcommands: []*cli.Command{
			actorInspectCommand(),
		},
	}
}

func actorInspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show an actor's journal entries and latest snapshot",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Actor ID",
				Required: true,
			},
		),
		Action: actorInspectAction,
	}
}

func actorInspectAction(c *cli.Context) error {
	rd, err := openReader(c)
	if err != nil {
		return err
	}

	detail, err := rd.InspectActor(c.Context, c.String("id"))
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return r.RenderTUI("actor", detail)
	}
	return r.Render(detail)
}
