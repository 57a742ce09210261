package toolconv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/pkg/models"
)

func TestToAnthropicToolConvertsSchema(t *testing.T) {
	d := models.ToolDescriptor{
		Name:        "search",
		Description: "Search the web",
		ArgSchema:   json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`),
	}

	param, err := ToAnthropicTool(d)
	require.NoError(t, err)
	require.NotNil(t, param.OfTool)
	assert.Equal(t, "search", param.OfTool.Name)
}

func TestToAnthropicToolRejectsInvalidSchema(t *testing.T) {
	d := models.ToolDescriptor{Name: "broken", ArgSchema: json.RawMessage(`{not-json}`)}
	_, err := ToAnthropicTool(d)
	assert.Error(t, err)
}

func TestToAnthropicToolsEmpty(t *testing.T) {
	tools, err := ToAnthropicTools(nil)
	require.NoError(t, err)
	assert.Nil(t, tools)
}
