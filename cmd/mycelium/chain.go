package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// chainConfig describes the effect chain applied between the source and
// the drain.
type chainConfig struct {
	Volume float64 `yaml:"volume"`
	Pan    float64 `yaml:"pan"`
	Pitch  float64 `yaml:"pitch"`
}

func defaultChain() *chainConfig {
	return &chainConfig{Volume: 1, Pan: 0, Pitch: 1}
}

// loadChain builds the chain from the optional YAML file, with any
// explicitly passed flags taking precedence.
func loadChain(cmd *cli.Command) (*chainConfig, error) {
	chain := defaultChain()

	if path := cmd.String("config"); path != "" {
		raw, err := os.ReadFile(path) //nolint:gosec // CLI tool reads user-specified config files
		if err != nil {
			return nil, fmt.Errorf("reading chain config: %w", err)
		}

		if err := yaml.Unmarshal(raw, chain); err != nil {
			return nil, fmt.Errorf("parsing chain config: %w", err)
		}
	}

	if cmd.IsSet("volume") {
		chain.Volume = cmd.Float("volume")
	}

	if cmd.IsSet("pan") {
		chain.Pan = cmd.Float("pan")
	}

	if cmd.IsSet("pitch") {
		chain.Pitch = cmd.Float("pitch")
	}

	return chain, nil
}
