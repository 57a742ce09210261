package config

import "github.com/agentcore/core/internal/completion"

// ContextPruningConfig is the YAML shape of completion.PruningSettings;
// every numeric field is a pointer so a config file can distinguish
// "not set, use the default" from "explicitly zero".
type ContextPruningConfig struct {
	KeepLastAssistants   *int     `yaml:"keep_last_assistants"`
	SoftTrimRatio        *float64 `yaml:"soft_trim_ratio"`
	HardClearRatio       *float64 `yaml:"hard_clear_ratio"`
	MinPrunableChars     *int     `yaml:"min_prunable_chars"`

	SoftTrim ContextPruningSoftTrim `yaml:"soft_trim"`
	HardClear ContextPruningHardClear `yaml:"hard_clear"`

	Tools ContextPruningToolMatch `yaml:"tools"`
}

type ContextPruningSoftTrim struct {
	MaxChars  *int `yaml:"max_chars"`
	HeadChars *int `yaml:"head_chars"`
	TailChars *int `yaml:"tail_chars"`
}

type ContextPruningHardClear struct {
	Enabled     *bool  `yaml:"enabled"`
	Placeholder string `yaml:"placeholder"`
}

type ContextPruningToolMatch struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// DefaultContextPruningConfig leaves every pointer nil so ToPruningSettings
// falls through entirely to completion.DefaultPruningSettings.
func DefaultContextPruningConfig() ContextPruningConfig {
	return ContextPruningConfig{}
}

func applyContextPruningDefaults(c *ContextPruningConfig) {
	// Nothing to repair: nil pointers already mean "use the runner's
	// own default", which ToPruningSettings honors without help.
	_ = c
}

// ToPruningSettings converts the config document into the settings
// type the Completion Runner's context packer consumes, overriding
// completion.DefaultPruningSettings() field by field wherever the
// document set a value.
func (c ContextPruningConfig) ToPruningSettings() completion.PruningSettings {
	s := completion.DefaultPruningSettings()

	if c.KeepLastAssistants != nil {
		s.KeepLastAssistants = clampInt(*c.KeepLastAssistants, 0, 1000)
	}
	if c.SoftTrimRatio != nil {
		s.SoftTrimRatio = clampFloat(*c.SoftTrimRatio, 0, 1)
	}
	if c.HardClearRatio != nil {
		s.HardClearRatio = clampFloat(*c.HardClearRatio, 0, 1)
	}
	if c.MinPrunableChars != nil {
		s.MinPrunableChars = clampInt(*c.MinPrunableChars, 0, 10_000_000)
	}
	if c.SoftTrim.MaxChars != nil {
		s.SoftTrimMaxChars = clampInt(*c.SoftTrim.MaxChars, 0, 10_000_000)
	}
	if c.SoftTrim.HeadChars != nil {
		s.SoftTrimHeadChars = clampInt(*c.SoftTrim.HeadChars, 0, 10_000_000)
	}
	if c.SoftTrim.TailChars != nil {
		s.SoftTrimTailChars = clampInt(*c.SoftTrim.TailChars, 0, 10_000_000)
	}
	if c.HardClear.Enabled != nil {
		s.HardClearEnabled = *c.HardClear.Enabled
	}
	if c.HardClear.Placeholder != "" {
		s.HardClearPlaceholder = c.HardClear.Placeholder
	}
	if len(c.Tools.Allow) > 0 {
		s.ToolAllow = c.Tools.Allow
	}
	if len(c.Tools.Deny) > 0 {
		s.ToolDeny = c.Tools.Deny
	}
	return s
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
