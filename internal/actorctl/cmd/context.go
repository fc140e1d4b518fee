package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/codeready-toolchain/actorflow/internal/actorctl/reader"
	"github.com/codeready-toolchain/actorflow/internal/storewire"
	"github.com/codeready-toolchain/actorflow/pkg/config"
)

// openReader loads configuration from the --config-dir global flag and
// opens the store backends it names, in the same way cmd/actorflowd does,
// so actorctl always inspects whichever backends the daemon is actually
// using.
func openReader(c *cli.Context) (*reader.Reader, error) {
	configDir := c.String("config-dir")
	if configDir == "" {
		return nil, fmt.Errorf("--config-dir is required")
	}

	cfg, err := config.Initialize(c.Context, configDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	stores, err := storewire.Open(c.Context, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store backends: %w", err)
	}

	return reader.New(cfg, stores), nil
}
