package main

import (
	"fmt"
	"time"

	"github.com/circlefin/malachite-sub001/host"
)

// config is the on-disk node configuration, loaded from config.toml per
// §6's "host-supplied" timeout and chain parameters.
type config struct {
	Moniker string `toml:"moniker"`
	ChainID string `toml:"chain_id"`

	MetricsAddr string `toml:"metrics_addr"`

	DataDir string `toml:"data_dir"`

	Timeouts timeoutConfig `toml:"timeouts"`
}

type timeoutConfig struct {
	ProposeMS   int64 `toml:"propose_ms"`
	PrevoteMS   int64 `toml:"prevote_ms"`
	PrecommitMS int64 `toml:"precommit_ms"`
	DeltaMS     int64 `toml:"delta_ms"`
	CommitMS    int64 `toml:"commit_ms"`
}

func defaultConfig() *config {
	d := host.DefaultTimeoutConfig()
	return &config{
		ChainID:     "malachite-devnet",
		MetricsAddr: "127.0.0.1:9090",
		DataDir:     "data",
		Timeouts: timeoutConfig{
			ProposeMS:   d.Propose.Milliseconds(),
			PrevoteMS:   d.Prevote.Milliseconds(),
			PrecommitMS: d.Precommit.Milliseconds(),
			DeltaMS:     d.ProposeDelta.Milliseconds(),
			CommitMS:    d.Commit.Milliseconds(),
		},
	}
}

func (c *config) validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("chain_id must not be empty")
	}
	if c.Timeouts.ProposeMS <= 0 || c.Timeouts.PrevoteMS <= 0 || c.Timeouts.PrecommitMS <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func (c *config) timeoutConfig() host.TimeoutConfig {
	d := host.DefaultTimeoutConfig()
	d.Propose = time.Duration(c.Timeouts.ProposeMS) * time.Millisecond
	d.Prevote = time.Duration(c.Timeouts.PrevoteMS) * time.Millisecond
	d.Precommit = time.Duration(c.Timeouts.PrecommitMS) * time.Millisecond
	d.ProposeDelta = time.Duration(c.Timeouts.DeltaMS) * time.Millisecond
	d.PrevoteDelta = time.Duration(c.Timeouts.DeltaMS) * time.Millisecond
	d.PrecommitDelta = time.Duration(c.Timeouts.DeltaMS) * time.Millisecond
	d.Commit = time.Duration(c.Timeouts.CommitMS) * time.Millisecond
	return d
}
