package toolconv

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentcore/core/pkg/models"
)

func TestToBedrockTools(t *testing.T) {
	descriptors := []models.ToolDescriptor{
		{
			Name:        "search",
			Description: "Search tool",
			ArgSchema:   json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
		},
		{
			Name:        "broken",
			Description: "Bad schema",
			ArgSchema:   json.RawMessage(`{not-json}`),
		},
	}

	cfg := ToBedrockTools(descriptors)
	if cfg == nil || len(cfg.Tools) != 2 {
		t.Fatalf("expected 2 bedrock tools, got %#v", cfg)
	}

	spec, ok := cfg.Tools[0].(*types.ToolMemberToolSpec)
	if !ok {
		t.Fatalf("expected ToolMemberToolSpec, got %T", cfg.Tools[0])
	}
	if spec.Value.Name == nil || *spec.Value.Name != "search" {
		t.Fatalf("unexpected tool name: %#v", spec.Value.Name)
	}
	if spec.Value.InputSchema == nil {
		t.Fatalf("expected input schema to be set")
	}
}

func TestToBedrockToolsEmpty(t *testing.T) {
	if cfg := ToBedrockTools(nil); cfg != nil {
		t.Fatalf("expected nil config for no descriptors, got %#v", cfg)
	}
}
