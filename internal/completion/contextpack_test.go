package completion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentcore/core/pkg/models"
)

func TestPruneHistoryNoopUnderSoftRatio(t *testing.T) {
	history := []models.ChatMessage{
		{Sender: models.RoleUser, Content: "hi"},
		{Sender: models.RoleAssistant, Content: "hello"},
	}
	out := PruneHistory(history, DefaultPruningSettings(), 1_000_000)
	assert.Equal(t, history, out)
}

func TestPruneHistorySoftTrimsOldToolResults(t *testing.T) {
	settings := DefaultPruningSettings()
	settings.KeepLastAssistants = 1
	settings.SoftTrimMaxChars = 100
	settings.SoftTrimHeadChars = 20
	settings.SoftTrimTailChars = 20
	settings.HardClearEnabled = false

	big := strings.Repeat("x", 500)
	history := []models.ChatMessage{
		{Sender: models.RoleUser, Content: "run the tool"},
		{Sender: models.RoleAssistant, Content: "", ToolName: "search"},
		{Sender: models.RoleTool, Content: big, ToolName: "search"},
		{Sender: models.RoleAssistant, Content: "done"},
	}

	out := PruneHistory(history, settings, 100)
	assert.Less(t, len(out[2].Content), len(big))
	assert.Contains(t, out[2].Content, "[trimmed:")
	assert.Equal(t, "done", out[3].Content, "protected assistant turn must survive untouched")
}

func TestPruneHistoryHardClearsWhenFarOverBudget(t *testing.T) {
	settings := DefaultPruningSettings()
	settings.KeepLastAssistants = 1
	settings.MinPrunableChars = 10
	settings.HardClearPlaceholder = "[cleared]"

	big := strings.Repeat("y", 10000)
	history := []models.ChatMessage{
		{Sender: models.RoleTool, Content: big, ToolName: "fetch"},
		{Sender: models.RoleAssistant, Content: "final"},
	}

	out := PruneHistory(history, settings, 100)
	assert.Equal(t, "[cleared]", out[0].Content)
}

func TestPruneHistoryRespectsDenyList(t *testing.T) {
	settings := DefaultPruningSettings()
	settings.KeepLastAssistants = 1
	settings.MinPrunableChars = 1
	settings.ToolDeny = []string{"keep_me"}

	big := strings.Repeat("z", 10000)
	history := []models.ChatMessage{
		{Sender: models.RoleTool, Content: big, ToolName: "keep_me"},
		{Sender: models.RoleAssistant, Content: "final"},
	}

	out := PruneHistory(history, settings, 100)
	assert.Equal(t, big, out[0].Content, "denied tool result must never be pruned")
}

func TestGlobMatch(t *testing.T) {
	assert.True(t, globMatch("*", "anything"))
	assert.True(t, globMatch("search", "search"))
	assert.False(t, globMatch("search", "searching"))
	assert.True(t, globMatch("fs_*", "fs_read"))
	assert.True(t, globMatch("*_read", "fs_read"))
}
