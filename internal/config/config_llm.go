package config

import "time"

// LLMConfig selects the providers a DefaultBackend's Completion Runner
// can use and the order to fail over between them.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
	FallbackChain   []string                     `yaml:"fallback_chain"`
	Bedrock         BedrockConfig                `yaml:"bedrock"`
}

// LLMProviderConfig configures one named provider entry.
type LLMProviderConfig struct {
	APIKey       string                                  `yaml:"api_key"`
	DefaultModel string                                  `yaml:"default_model"`
	BaseURL      string                                  `yaml:"base_url"`
	APIVersion   string                                  `yaml:"api_version"`
	Profiles     map[string]LLMProviderProfileConfig `yaml:"profiles"`
}

// LLMProviderProfileConfig overrides a provider's defaults for one
// named profile (e.g. a cheaper model for the analysis namespace).
type LLMProviderProfileConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// BedrockConfig configures the optional AWS Bedrock provider, whose
// available models are discovered rather than statically listed.
type BedrockConfig struct {
	Enabled              bool          `yaml:"enabled"`
	Region               string        `yaml:"region"`
	RefreshInterval      time.Duration `yaml:"refresh_interval"`
	ProviderFilter       []string      `yaml:"provider_filter"`
	DefaultContextWindow int           `yaml:"default_context_window"`
	DefaultMaxTokens     int           `yaml:"default_max_tokens"`
}
