package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/render"
)

// ConfigCommand reports the registries loaded from --config-dir.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Show loaded actor type and pipeline configuration",
		Flags:  ReadOnlyFlags(),
		Action: configAction,
	}
}

func configAction(c *cli.Context) error {
	rd, err := openReader(c)
	if err != nil {
		return err
	}

	summary := rd.Config()

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		return r.RenderTUI("config", summary)
	}
	return r.Render(summary)
}
