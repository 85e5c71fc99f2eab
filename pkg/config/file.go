package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the project configuration file looked up from the input's directory upward.
const FileName = "nsc.toml"

type fileConfig struct {
	Compiler compilerSection `toml:"compiler"`
	Warnings map[string]bool `toml:"warnings"`
	Features map[string]bool `toml:"features"`
}

type compilerSection struct {
	Backend string `toml:"backend"`
	Target  string `toml:"target"`
	Entry   string `toml:"entry"`
	Class   string `toml:"class"`
}

// FindFile walks from startDir to the filesystem root looking for nsc.toml.
func FindFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// ApplyFile loads a TOML configuration file over the current settings.
func (c *Config) ApplyFile(path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key '%s'", path, undecoded[0])
	}
	return c.apply(path, fc)
}

// ApplyString is ApplyFile for in-memory TOML.
func (c *Config) ApplyString(name, data string) error {
	var fc fileConfig
	meta, err := toml.Decode(data, &fc)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key '%s'", name, undecoded[0])
	}
	return c.apply(name, fc)
}

func (c *Config) apply(name string, fc fileConfig) error {
	switch fc.Compiler.Backend {
	case "":
	case "cil", "qbe":
		c.BackendName = fc.Compiler.Backend
	default:
		return fmt.Errorf("%s: unsupported backend '%s'. Supported: 'cil', 'qbe'", name, fc.Compiler.Backend)
	}
	if fc.Compiler.Target != "" {
		c.BackendTarget = fc.Compiler.Target
	}
	if fc.Compiler.Entry != "" {
		c.EntryName = fc.Compiler.Entry
	}
	if fc.Compiler.Class != "" {
		c.ClassName = fc.Compiler.Class
	}
	for wname, on := range fc.Warnings {
		w, ok := c.WarningMap[wname]
		if !ok {
			return fmt.Errorf("%s: unknown warning '%s'", name, wname)
		}
		c.SetWarning(w, on)
	}
	for fname, on := range fc.Features {
		f, ok := c.FeatureMap[fname]
		if !ok {
			return fmt.Errorf("%s: unknown feature '%s'", name, fname)
		}
		c.SetFeature(f, on)
	}
	return nil
}
