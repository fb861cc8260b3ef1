// Package config loads the TOML configuration file accepted by `--config`.
// Shape mirrors original_source/flexemu/src/config/mod.rs's
// FlexEmuConfig{os: Config} and original_source/omo/src/loader/mod.rs's
// Config{stack_address, stack_size, load_address, mmap_address}.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// OS is the emulator configuration proper: spec.md §3's "Emulator
// configuration" value.
type OS struct {
	StackAddress uint64 `toml:"stack_address"`
	StackSize    uint64 `toml:"stack_size"`
	LoadAddress  uint64 `toml:"load_address"`
	MmapAddress  uint64 `toml:"mmap_address"`
}

// Config is the top-level TOML document.
type Config struct {
	OS OS `toml:"os"`
}

// Default returns the stock configuration used when no --config is given:
// a 8MiB stack ending just under 0x80000000, static load address (ET_EXEC
// binaries carry their own addresses), and an mmap bump-allocator base well
// above the typical program break.
func Default() Config {
	return Config{
		OS: OS{
			StackAddress: 0x7f800000,
			StackSize:    8 * 1024 * 1024,
			LoadAddress:  0,
			MmapAddress:  0x40000000,
		},
	}
}

// Load decodes a TOML file at path, falling back to Default() for any field
// left unset by the file (toml.Decode leaves Go zero values, so we seed with
// defaults and decode over them).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
