package toolconv

import (
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentcore/core/pkg/models"
)

// ToOpenAITools converts descriptors to OpenAI function-calling tool schema.
func ToOpenAITools(descriptors []models.ToolDescriptor) []openai.Tool {
	result := make([]openai.Tool, len(descriptors))
	for i, d := range descriptors {
		schema := map[string]any{"type": "object", "properties": map[string]any{}}
		if len(d.ArgSchema) > 0 {
			if err := json.Unmarshal(d.ArgSchema, &schema); err != nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
		}
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schema,
			},
		}
	}
	return result
}
