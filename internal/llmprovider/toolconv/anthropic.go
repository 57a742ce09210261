// Package toolconv converts models.ToolDescriptor into each vendor SDK's
// native tool-definition shape.
package toolconv

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/agentcore/core/pkg/models"
)

// ToAnthropicTools converts descriptors to Anthropic tool definitions.
func ToAnthropicTools(descriptors []models.ToolDescriptor) ([]anthropic.ToolUnionParam, error) {
	if len(descriptors) == 0 {
		return nil, nil
	}
	result := make([]anthropic.ToolUnionParam, 0, len(descriptors))
	for _, d := range descriptors {
		param, err := ToAnthropicTool(d)
		if err != nil {
			return nil, err
		}
		result = append(result, param)
	}
	return result, nil
}

// ToAnthropicTool converts a single descriptor.
func ToAnthropicTool(d models.ToolDescriptor) (anthropic.ToolUnionParam, error) {
	schema := anthropic.ToolInputSchemaParam{}
	if len(d.ArgSchema) > 0 {
		if err := json.Unmarshal(d.ArgSchema, &schema); err != nil {
			return anthropic.ToolUnionParam{}, fmt.Errorf("toolconv: invalid schema for %s: %w", d.Name, err)
		}
	}

	param := anthropic.ToolUnionParamOfTool(schema, d.Name)
	if param.OfTool == nil {
		return anthropic.ToolUnionParam{}, fmt.Errorf("toolconv: missing tool definition for %s", d.Name)
	}
	param.OfTool.Description = anthropic.String(d.Description)
	return param, nil
}
