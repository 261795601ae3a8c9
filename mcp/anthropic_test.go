package mcp

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToAnthropicTools(t *testing.T) {
	tools := []Tool{
		{
			Name:        "echo",
			Description: "エコーツール",
			InputSchema: ParseInputSchema([]byte(`{
				"type": "object",
				"properties": {"message": {"type": "string"}}
			}`)),
		},
	}

	anthropicTools := ToAnthropicTools(tools)
	if len(anthropicTools) != 1 {
		t.Fatalf("expected 1 anthropic tool, got %d", len(anthropicTools))
	}

	tool := anthropicTools[0]
	if tool.OfTool == nil {
		t.Fatal("OfTool is nil")
	}
	if tool.OfTool.Name != "echo" {
		t.Errorf("expected tool name 'echo', got '%s'", tool.OfTool.Name)
	}
	if tool.OfTool.Description.Value != "エコーツール" {
		t.Errorf("expected description 'エコーツール', got '%v'", tool.OfTool.Description.Value)
	}
	props, ok := tool.OfTool.InputSchema.Properties.(map[string]any)
	if !ok {
		t.Fatalf("expected Properties to be map[string]any")
	}
	if prop, ok := props["message"].(map[string]any); !ok || prop["type"] != "string" {
		t.Errorf("expected property 'message' of type 'string'")
	}
}

func TestToAnthropicTools_FromParsedProperties(t *testing.T) {
	tools := []Tool{{
		Name: "add",
		InputSchema: ToolInputSchema{
			Properties: []Property{{Name: "a", Type: "number", Description: "First operand"}},
		},
	}}

	props := ToAnthropicTools(tools)[0].OfTool.InputSchema.Properties.(map[string]any)
	prop, ok := props["a"].(map[string]any)
	if !ok || prop["type"] != "number" || prop["description"] != "First operand" {
		t.Errorf("unexpected property: %#v", props["a"])
	}
}

func TestMarshalAnthropicTools(t *testing.T) {
	out, err := MarshalAnthropicTools([]Tool{{Name: "now", Description: "Current time"}})
	if err != nil {
		t.Fatalf("MarshalAnthropicTools: %v", err)
	}

	for _, want := range []string{`"name": "now"`, `"description": "Current time"`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestToAnthropicTools_KeepsRequired(t *testing.T) {
	tools := []Tool{{
		Name: "add",
		InputSchema: ParseInputSchema([]byte(`{
			"type": "object",
			"properties": {
				"a": {"type": "number"},
				"b": {"type": "number"},
				"note": {"type": "string"}
			},
			"required": ["a", "b"]
		}`)),
	}}

	schema := ToAnthropicTools(tools)[0].OfTool.InputSchema
	if diff := cmp.Diff([]string{"a", "b"}, schema.ExtraFields["required"]); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}

	out, err := MarshalAnthropicTools(tools)
	if err != nil {
		t.Fatalf("MarshalAnthropicTools: %v", err)
	}
	if !strings.Contains(string(out), `"required"`) {
		t.Errorf("expected required in %s", out)
	}
}

func TestToAnthropicTools_NoRequired(t *testing.T) {
	schema := ToAnthropicTools([]Tool{{Name: "now"}})[0].OfTool.InputSchema
	if _, ok := schema.ExtraFields["required"]; ok {
		t.Errorf("expected no required field, got %#v", schema.ExtraFields)
	}
}
