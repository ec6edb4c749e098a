package main

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/noderep/pkg/fs"
)

// FileConfig holds the subset of a benchmark run's tunables that can
// be loaded from a config file instead of passed as flags, so a
// repeatable benchmark profile can be checked into a repo. Any
// non-zero field loaded from the file overrides the same flag, whether
// or not that flag was given on the command line.
type FileConfig struct {
	TMax      uint32 `json:"tmax,omitempty"`
	LogSize   uint32 `json:"log_size,omitempty"`   //nolint:tagliatelle
	Batch     uint32 `json:"batch,omitempty"`
	Shards    uint32 `json:"shards,omitempty"`
	Replicas  int    `json:"replicas,omitempty"`
	Threads   int    `json:"threads,omitempty"`
	Ops       int    `json:"ops,omitempty"`
}

// loadFileConfig reads a JSONC (JSON-with-comments) config file
// through the fs abstraction and relaxes it to standard JSON with
// hujson before unmarshaling, the same way the rest of this codebase
// reads its own config files.
func loadFileConfig(fsys fs.FS, path string) (FileConfig, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("reading %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return FileConfig{}, fmt.Errorf("invalid JSONC in %s: %w", path, err)
	}

	var cfg FileConfig
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	return cfg, nil
}

// applyTo overlays any non-zero field of fc onto cfg and returns the
// result.
func (fc FileConfig) applyTo(cfg runConfig) runConfig {
	if fc.TMax != 0 {
		cfg.tmax = fc.TMax
	}
	if fc.LogSize != 0 {
		cfg.logSize = fc.LogSize
	}
	if fc.Batch != 0 {
		cfg.batch = fc.Batch
	}
	if fc.Shards != 0 {
		cfg.shards = fc.Shards
	}
	if fc.Replicas != 0 {
		cfg.replicas = fc.Replicas
	}
	if fc.Threads != 0 {
		cfg.threads = fc.Threads
	}
	if fc.Ops != 0 {
		cfg.ops = fc.Ops
	}
	return cfg
}
