package toolconv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/core/pkg/models"
)

func TestToGeminiToolsBuildsFunctionDeclarations(t *testing.T) {
	descriptors := []models.ToolDescriptor{
		{Name: "search", Description: "Search the web", ArgSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}},"required":["q"]}`)},
	}

	tools := ToGeminiTools(descriptors)
	require.Len(t, tools, 1)
	require.Len(t, tools[0].FunctionDeclarations, 1)

	decl := tools[0].FunctionDeclarations[0]
	assert.Equal(t, "search", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Contains(t, decl.Parameters.Required, "q")
}

func TestToGeminiToolsEmpty(t *testing.T) {
	assert.Nil(t, ToGeminiTools(nil))
}
