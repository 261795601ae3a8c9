package mcp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const addSchema = `{
  "type": "object",
  "properties": {
    "b": {"type": "number", "description": "Second operand"},
    "a": {"type": "number", "description": "First operand"},
    "round": {"type": ["boolean", "null"]}
  },
  "required": ["a", "b"]
}`

func TestParseInputSchema(t *testing.T) {
	schema := ParseInputSchema([]byte(addSchema))

	if schema.Type != "object" {
		t.Errorf("expected type 'object', got '%s'", schema.Type)
	}

	want := []Property{
		{Name: "b", Type: "number", Description: "Second operand", Required: true},
		{Name: "a", Type: "number", Description: "First operand", Required: true},
		{Name: "round", Type: "boolean"},
	}
	if diff := cmp.Diff(want, schema.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInputSchema_Invalid(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"type":"object"}`} {
		schema := ParseInputSchema([]byte(raw))
		if len(schema.Properties) != 0 {
			t.Errorf("%q: expected no properties, got %#v", raw, schema.Properties)
		}
	}
}

func TestToolFormat(t *testing.T) {
	tool := Tool{
		Name:        "add",
		Description: "Add two numbers",
		InputSchema: ParseInputSchema([]byte(addSchema)),
	}

	want := "Tool: add\n" +
		"Description: Add two numbers\n" +
		"Arguments:\n" +
		"  - b: Second operand (required)\n" +
		"  - a: First operand (required)\n" +
		"  - round: No description (optional)\n"

	if got := tool.Format(); got != want {
		t.Errorf("unexpected format:\n%s", cmp.Diff(want, got))
	}
}

func TestToolFormat_NoArguments(t *testing.T) {
	tool := Tool{Name: "now"}

	want := "Tool: now\nDescription: No description\n"
	if got := tool.Format(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatTools(t *testing.T) {
	tools := []Tool{{Name: "a", Description: "first"}, {Name: "b", Description: "second"}}

	want := "Tool: a\nDescription: first\n\nTool: b\nDescription: second\n"
	if got := FormatTools(tools); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
