package completion

import (
	"strconv"
	"strings"

	"github.com/agentcore/core/pkg/models"
)

// PruningSettings controls in-memory trimming of stale tool-result
// content before it is handed to the provider, bounding the turn's
// input to the model's context window without discarding the
// conversation itself.
type PruningSettings struct {
	// KeepLastAssistants protects the most recent N assistant turns (and
	// everything after the first one kept) from pruning entirely.
	KeepLastAssistants int
	// SoftTrimRatio is the fraction of CharWindow at which soft
	// trimming (head/tail with an elision marker) begins.
	SoftTrimRatio float64
	// HardClearRatio is the fraction of CharWindow at which a tool
	// result is replaced outright with Placeholder.
	HardClearRatio float64
	// MinPrunableChars bounds hard-clearing to only run once there is
	// enough prunable content to make a meaningful difference.
	MinPrunableChars int

	SoftTrimMaxChars  int
	SoftTrimHeadChars int
	SoftTrimTailChars int

	HardClearEnabled     bool
	HardClearPlaceholder string

	// ToolAllow/ToolDeny are lowercase glob patterns ("*" wildcard)
	// selecting which tool results are eligible for pruning. An empty
	// Allow list means every tool not matched by Deny is eligible.
	ToolAllow []string
	ToolDeny  []string
}

// DefaultPruningSettings mirrors the teacher's tuning.
func DefaultPruningSettings() PruningSettings {
	return PruningSettings{
		KeepLastAssistants:   3,
		SoftTrimRatio:        0.3,
		HardClearRatio:       0.5,
		MinPrunableChars:     50000,
		SoftTrimMaxChars:     4000,
		SoftTrimHeadChars:    1500,
		SoftTrimTailChars:    1500,
		HardClearEnabled:     true,
		HardClearPlaceholder: "[older tool result cleared]",
	}
}

// PruneHistory trims or clears stale tool-result content from history so
// the turn's composed input fits charWindow. It returns the original
// slice unmodified when no pruning is needed; otherwise it returns a new
// slice sharing untouched elements with history.
func PruneHistory(history []models.ChatMessage, settings PruningSettings, charWindow int) []models.ChatMessage {
	if len(history) == 0 || charWindow <= 0 {
		return history
	}

	cutoff, ok := assistantCutoff(history, settings.KeepLastAssistants)
	if !ok {
		return history
	}

	total := estimateChars(history)
	if float64(total)/float64(charWindow) < settings.SoftTrimRatio {
		return history
	}

	prunable := isPrunable(settings.ToolAllow, settings.ToolDeny)
	out := append([]models.ChatMessage(nil), history...)

	type ref struct{ index int }
	var candidates []ref

	for i := 0; i < cutoff; i++ {
		m := out[i]
		if m.Sender != models.RoleTool || !prunable(m.ToolName) {
			continue
		}
		candidates = append(candidates, ref{index: i})

		trimmed, changed := softTrim(m.Content, settings)
		if !changed {
			continue
		}
		before := len(m.Content)
		m.Content = trimmed
		total += len(trimmed) - before
		out[i] = m
	}

	if float64(total)/float64(charWindow) < settings.HardClearRatio || !settings.HardClearEnabled {
		return out
	}

	prunableChars := 0
	for _, c := range candidates {
		prunableChars += len(out[c.index].Content)
	}
	if prunableChars < settings.MinPrunableChars {
		return out
	}

	ratio := float64(total) / float64(charWindow)
	for _, c := range candidates {
		if ratio < settings.HardClearRatio {
			break
		}
		before := len(out[c.index].Content)
		out[c.index].Content = settings.HardClearPlaceholder
		total += len(settings.HardClearPlaceholder) - before
		ratio = float64(total) / float64(charWindow)
	}

	return out
}

// assistantCutoff returns the index of the keepLastAssistants-th most
// recent assistant message counting from the end; everything at or
// after that index is never pruned. ok is false when history holds
// fewer assistant messages than keepLastAssistants (nothing is safe to
// prune yet).
func assistantCutoff(history []models.ChatMessage, keepLastAssistants int) (int, bool) {
	if keepLastAssistants <= 0 {
		return len(history), true
	}
	remaining := keepLastAssistants
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == models.RoleAssistant {
			remaining--
			if remaining == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func estimateChars(history []models.ChatMessage) int {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	return total
}

func softTrim(content string, settings PruningSettings) (string, bool) {
	if len(content) <= settings.SoftTrimMaxChars {
		return content, false
	}
	head, tail := settings.SoftTrimHeadChars, settings.SoftTrimTailChars
	if head < 0 {
		head = 0
	}
	if tail < 0 {
		tail = 0
	}
	if head+tail >= len(content) {
		return content, false
	}
	note := "\n\n[trimmed: kept first " + strconv.Itoa(head) + " and last " + strconv.Itoa(tail) +
		" chars of " + strconv.Itoa(len(content)) + "]"
	return content[:head] + "\n...\n" + content[len(content)-tail:] + note, true
}

func isPrunable(allow, deny []string) func(toolName string) bool {
	allow = normalizePatterns(allow)
	deny = normalizePatterns(deny)
	return func(toolName string) bool {
		name := strings.ToLower(strings.TrimSpace(toolName))
		if name == "" {
			return false
		}
		if matchesAny(name, deny) {
			return false
		}
		if len(allow) == 0 {
			return true
		}
		return matchesAny(name, allow)
	}
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		v := strings.ToLower(strings.TrimSpace(p))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if globMatch(p, name) {
			return true
		}
	}
	return false
}

// globMatch supports a single "*" wildcard semantics consistent with
// internal/toolpolicy's pattern matching.
func globMatch(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == value
	}
	parts := strings.Split(pattern, "*")
	idx := 0
	if parts[0] != "" {
		if !strings.HasPrefix(value, parts[0]) {
			return false
		}
		idx = len(parts[0])
	}
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			continue
		}
		pos := strings.Index(value[idx:], parts[i])
		if pos < 0 {
			return false
		}
		idx += pos + len(parts[i])
	}
	last := parts[len(parts)-1]
	return last == "" || strings.HasSuffix(value, last)
}
