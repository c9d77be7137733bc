package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/ucc/pkg/cli"
)

type Feature int

const (
	FeatLexicalScopes Feature = iota
	FeatAssertMessages
	FeatCFGComments
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnUnreachableCode
	WarnMissingReturn
	WarnPedantic
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features    map[Feature]Info
	Warnings    map[Warning]Info
	FeatureMap  map[string]Feature
	WarningMap  map[string]Warning
	BackendName string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:    make(map[Feature]Info),
		Warnings:    make(map[Warning]Info),
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: "ir",
	}

	features := map[Feature]Info{
		FeatLexicalScopes:  {"lexical-scopes", true, "Give every function and loop body its own nested scope. Disable for the legacy flat scope numbering."},
		FeatAssertMessages: {"assert-messages", true, "Print a message with the source coordinate when an assertion fails."},
		FeatCFGComments:    {"cfg-comments", false, "Annotate dumped blocks with their predecessors and successors."},
	}

	warnings := map[Warning]Info{
		WarnShadow:          {"shadow", false, "Warn when a declaration hides one from an enclosing scope."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements that follow a return or break."},
		WarnMissingReturn:   {"missing-return", true, "Warn when a non-void function can end without a return statement."},
		WarnPedantic:        {"pedantic", false, "Issue every warning, including the noisy ones."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
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

// IsWarningEnabled also answers true for every warning once pedantic is on
func (c *Config) IsWarningEnabled(wt Warning) bool {
	return c.Warnings[wt].Enabled || c.Warnings[WarnPedantic].Enabled
}

// SetupFlagGroups registers -W<warning> and -F<feature> switches on fs. The
// returned entries are indexed by Warning and Feature respectively
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := info.Enabled, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := info.Enabled, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled,
		}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warning Flags:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature flag", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies the parsed switch state back into c. A -Wno-x
// or -Fno-x wins over the positive form
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if entry.Enabled != nil {
			c.SetWarning(Warning(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if entry.Enabled != nil {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name, isWarning = strings.TrimPrefix(trimmed, "W"), true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
	default:
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}
	enable := !strings.HasPrefix(name, "no-")
	name = strings.TrimPrefix(name, "no-")

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return nil
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return nil
		}
		return fmt.Errorf("unknown warning '%s'", name)
	}
	if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
		return nil
	}
	return fmt.Errorf("unknown feature '%s'", name)
}

// ProcessFlagString applies a whitespace separated list of -W and -F
// switches, as written in test case headers. -Wall and -Wno-all apply first
func (c *Config) ProcessFlagString(flagStr string) error {
	flags := strings.Fields(flagStr)
	sort.SliceStable(flags, func(i, j int) bool {
		return isAllFlag(flags[i]) && !isAllFlag(flags[j])
	})
	for _, flag := range flags {
		if err := c.applyFlag(flag); err != nil {
			return err
		}
	}
	return nil
}

func isAllFlag(flag string) bool {
	return flag == "-Wall" || flag == "-Wno-all"
}
