package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xplshn/nsc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatEntryCall Feature = iota
	FeatInitFields
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnUnused
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	BackendName   string
	BackendTarget string
	// EntryName is the user function the entry method calls.
	EntryName string
	// ClassName overrides the namespace name as the emitted class name.
	ClassName string
	Verbose   bool
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: "cil",
		EntryName:   "main",
	}

	features := map[Feature]Info{
		FeatEntryCall:  {"entry-call", true, "Call a zero-argument entry function from the generated entry method."},
		FeatInitFields: {"init-fields", true, "Evaluate namespace-level initializers in the entry method."},
	}

	warnings := map[Warning]Info{
		WarnShadow: {"shadow", true, "Warn when a local declaration shadows an outer one."},
		WarnUnused: {"unused", false, "Warn about local variables that are never referenced."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the QBE target used by the native backend.
func (c *Config) SetTarget(goos, goarch, qbeTarget string) {
	if qbeTarget == "" {
		c.BackendTarget = libqbe.DefaultTarget(goos, goarch)
		if c.Verbose {
			fmt.Fprintf(os.Stderr, "nsc: info: no target specified, defaulting to host target '%s'\n", c.BackendTarget)
		}
		return
	}
	switch qbeTarget {
	case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
	default:
		fmt.Fprintf(os.Stderr, "nsc: warning: unrecognized or unsupported QBE target '%s'.\n", qbeTarget)
	}
	c.BackendTarget = qbeTarget
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// WarningName is the flag name of wt, used to tag diagnostics.
func (c *Config) WarningName(wt Warning) string { return c.Warnings[wt].Name }

// ApplyFlag handles a single -W/-F switch such as "-Wno-shadow" or "-Finit-fields".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			c.SetWarning(i, enable)
		}
		return nil
	}

	if isWarning {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enable)
		return nil
	}
	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// SetupFlagGroups registers -W and -F switches for every warning and feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	var warningFlags, featureFlags []cli.FlagGroupEntry

	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := false, false
		warningFlags = append(warningFlags, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: &enabled, Disabled: &disabled,
			Default: info.Enabled,
		})
	}
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := false, false
		featureFlags = append(featureFlags, cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled,
			Default: info.Enabled,
		})
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)

	return warningFlags, featureFlags
}

// ApplyFlagGroups copies parsed -W/-F switches into the configuration. Indexes
// of the entries match the Warning and Feature enums.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

// Fingerprint renders every setting that influences compiler output, in a
// stable order, for use in cache keys.
func (c *Config) Fingerprint() string {
	var parts []string
	for _, info := range c.Warnings {
		parts = append(parts, fmt.Sprintf("W%s=%v", info.Name, info.Enabled))
	}
	for _, info := range c.Features {
		parts = append(parts, fmt.Sprintf("F%s=%v", info.Name, info.Enabled))
	}
	sort.Strings(parts)
	parts = append(parts, "backend="+c.BackendName, "target="+c.BackendTarget, "entry="+c.EntryName, "class="+c.ClassName)
	return strings.Join(parts, ";")
}
