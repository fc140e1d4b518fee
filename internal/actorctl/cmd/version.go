package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/render"
	"github.com/codeready-toolchain/actorflow/pkg/version"
)

// VersionResponse reports the binary's version, shared lockstep with
// cmd/actorflowd.
type VersionResponse struct {
	Version string `json:"version"`
}

// VersionCommand shows version information. Must not contact any store.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  ReadOnlyFlags(),
		Action: versionAction,
	}
}

func versionAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for version", 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(VersionResponse{Version: version.Full()})
}
