package scheduler

import (
	"regexp"

	"github.com/agentcore/core/pkg/models"
)

// DefaultMaxResultBytes bounds a single tool completion's value before it
// is handed back to the LLM or persisted, preventing memory exhaustion
// from a runaway or malicious tool.
const DefaultMaxResultBytes = 64 * 1024

// builtinSecretPatterns are applied whenever sanitization is enabled,
// catching the most common accidental secret leaks in tool output.
var builtinSecretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[\w-]{20,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[\w-\.]+`),
	regexp.MustCompile(`(?i)(password|passwd|secret|token)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
}

// ResultGuard sanitizes a ToolCompletion's value before it reaches the
// Event Queue, bounding its size and redacting likely secrets. It never
// changes Sync/CallID/ToolName/Err — only Value.
type ResultGuard struct {
	MaxBytes        int
	SanitizeSecrets bool
}

// DefaultResultGuard applies the package's default size bound with
// secret sanitization enabled.
func DefaultResultGuard() ResultGuard {
	return ResultGuard{MaxBytes: DefaultMaxResultBytes, SanitizeSecrets: true}
}

func (g ResultGuard) active() bool {
	return g.MaxBytes > 0 || g.SanitizeSecrets
}

// Apply returns a copy of completion with its Value sanitized. Error
// completions are returned unchanged since Err is a guard-controlled
// reason string, not tool-produced free text.
func (g ResultGuard) Apply(completion models.ToolCompletion) models.ToolCompletion {
	if !g.active() || completion.IsError() || len(completion.Value) == 0 {
		return completion
	}

	value := string(completion.Value)
	if g.SanitizeSecrets {
		for _, re := range builtinSecretPatterns {
			value = re.ReplaceAllString(value, `"[REDACTED]"`)
		}
	}
	if g.MaxBytes > 0 && len(value) > g.MaxBytes {
		value = value[:g.MaxBytes] + `..."[truncated]`
	}

	completion.Value = []byte(value)
	return completion
}
