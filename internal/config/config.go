// Package config loads the optional ~/.minshrc run-control file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the shell's run-control file. All fields have working defaults;
// a missing file is not an error.
type Config struct {
	// Prompt is a format string; an optional %s receives the working
	// directory.
	Prompt string `toml:"prompt"`

	History struct {
		File string `toml:"file"`
		Size int    `toml:"size"`
	} `toml:"history"`

	Jobs struct {
		Max int `toml:"max"`
	} `toml:"jobs"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Prompt = "minsh:%s$ "
	c.History.File = homePath(".minsh_history")
	c.History.Size = 200
	c.Jobs.Max = 64
	return c
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return homePath(".minshrc")
}

// Load reads path over the defaults. A nonexistent file yields the
// defaults.
func Load(path string) (Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

func homePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, name)
}
