// Package config loads engine configuration from an HCL file, grounded on
// leftmike-maho.v1/config's use of github.com/hashicorp/hcl to decode a
// map of named settings into typed struct fields.
package config

import (
	"fmt"
	"os"

	"ridgedb/common"

	"github.com/hashicorp/hcl"
)

// Config controls the tunable knobs of the storage core. Every field has a
// workable default so the engine runs without a config file present.
type Config struct {
	PageSize       int `hcl:"page_size"`
	BufferPoolSize int `hcl:"buffer_pool_size"`
	LogBufferSize  int `hcl:"log_buffer_size"`
	BTreeOrder     int `hcl:"btree_order"`
}

// Default returns the configuration used when no HCL file is supplied.
func Default() Config {
	return Config{
		PageSize:       common.DefaultPageSize,
		BufferPoolSize: 64,
		LogBufferSize:  64 * 1024,
		BTreeOrder:     64,
	}
}

// Load decodes an HCL config file at path, starting from Default() so any
// setting the file omits keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := hcl.Decode(&cfg, string(data)); err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if cfg.PageSize <= 0 || cfg.BufferPoolSize <= 0 || cfg.LogBufferSize <= 0 || cfg.BTreeOrder < 4 {
		return cfg, fmt.Errorf("config: invalid settings after decoding %s", path)
	}

	return cfg, nil
}
