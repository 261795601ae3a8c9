package mcp

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"
)

// ToAnthropicTools converts tool descriptors into Anthropic tool
// definitions so they can be handed to a Messages API request.
func ToAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	anthropicTools := []anthropic.ToolUnionParam{}
	for _, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: schemaProperties(tool.InputSchema),
		}
		if required := schemaRequired(tool.InputSchema); len(required) > 0 {
			inputSchema.ExtraFields = map[string]any{"required": required}
		}

		anthropicTools = append(anthropicTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: inputSchema,
			},
		})
	}

	return anthropicTools
}

func schemaProperties(schema ToolInputSchema) map[string]any {
	properties := map[string]any{}

	raw := gjson.GetBytes(schema.Raw, "properties")
	if raw.IsObject() {
		if err := json.Unmarshal([]byte(raw.Raw), &properties); err == nil {
			return properties
		}
	}

	for _, p := range schema.Properties {
		property := map[string]any{}
		if p.Type != "" {
			property["type"] = p.Type
		}
		if p.Description != "" {
			property["description"] = p.Description
		}
		properties[p.Name] = property
	}

	return properties
}

func schemaRequired(schema ToolInputSchema) []string {
	var required []string
	for _, p := range schema.Properties {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return required
}

// MarshalAnthropicTools renders the Anthropic tool definitions as indented
// JSON.
func MarshalAnthropicTools(tools []Tool) ([]byte, error) {
	return json.MarshalIndent(ToAnthropicTools(tools), "", "  ")
}
