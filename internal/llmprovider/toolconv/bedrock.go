package toolconv

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentcore/core/pkg/models"
)

// ToBedrockTools converts descriptors to a Bedrock Converse tool configuration.
func ToBedrockTools(descriptors []models.ToolDescriptor) *types.ToolConfiguration {
	if len(descriptors) == 0 {
		return nil
	}
	bedrockTools := make([]types.Tool, len(descriptors))
	for i, d := range descriptors {
		var schema any = map[string]any{"type": "object", "properties": map[string]any{}}
		if len(d.ArgSchema) > 0 {
			if err := json.Unmarshal(d.ArgSchema, &schema); err != nil {
				schema = map[string]any{"type": "object", "properties": map[string]any{}}
			}
		}
		bedrockTools[i] = &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(d.Name),
				Description: aws.String(d.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		}
	}
	return &types.ToolConfiguration{Tools: bedrockTools}
}
