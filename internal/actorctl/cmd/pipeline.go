package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/render"
)

// PipelineCommand inspects one pipeline instance by ID.
func PipelineCommand() *cli.Command {
	return &cli.Command{
		Name:  "pipeline",
		Usage: "Inspect a pipeline instance",
		Subcommands: []*cli.Command{
			pipelineInspectCommand(),
		},
	}
}

func pipelineInspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show a pipeline instance's stage states and pending outbox",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Pipeline instance ID",
				Required: true,
			},
		),
		Action: pipelineInspectAction,
	}
}

func pipelineInspectAction(c *cli.Context) error {
	rd, err := openReader(c)
	if err != nil {
		return err
	}

	detail, err := rd.InspectPipeline(c.Context, c.String("id"))
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return r.RenderTUI("pipeline", detail)
	}
	return r.Render(detail)
}
