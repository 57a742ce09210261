package toolconv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/pkg/models"
)

func TestToOpenAIToolsConvertsSchema(t *testing.T) {
	descriptors := []models.ToolDescriptor{
		{Name: "search", Description: "Search the web", ArgSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`)},
		{Name: "broken", Description: "Bad schema", ArgSchema: json.RawMessage(`{not-json}`)},
	}

	tools := ToOpenAITools(descriptors)
	require.Len(t, tools, 2)
	assert.Equal(t, "search", tools[0].Function.Name)
	assert.Equal(t, "Search the web", tools[0].Function.Description)

	// Invalid schema falls back to an empty object schema rather than erroring.
	assert.Equal(t, "broken", tools[1].Function.Name)
	assert.NotNil(t, tools[1].Function.Parameters)
}
