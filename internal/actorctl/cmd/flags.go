// Package cmd provides the actorctl CLI's commands.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// TUIFlag enables the Bubble Tea dashboard for supported commands.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (config, actor, pipeline only)",
	}
)

// ReadOnlyFlags returns the flags shared by every actorctl command.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, TUIFlag}
}
