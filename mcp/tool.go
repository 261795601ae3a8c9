package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

type Tool struct {
	Name        string
	Description string
	// Server is the name of the server that advertised the tool.
	Server      string
	InputSchema ToolInputSchema
}

type ToolInputSchema struct {
	Type       string
	Properties []Property
	Raw        json.RawMessage
}

type Property struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ParseInputSchema reads a JSON Schema object. Properties keep the order
// in which they appear in raw.
func ParseInputSchema(raw []byte) ToolInputSchema {
	schema := ToolInputSchema{Raw: raw}
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return schema
	}

	root := gjson.ParseBytes(raw)
	schema.Type = root.Get("type").String()

	required := make(map[string]bool)
	root.Get("required").ForEach(func(_, value gjson.Result) bool {
		required[value.String()] = true
		return true
	})

	root.Get("properties").ForEach(func(key, value gjson.Result) bool {
		schema.Properties = append(schema.Properties, Property{
			Name:        key.String(),
			Type:        propertyType(value.Get("type")),
			Description: value.Get("description").String(),
			Required:    required[key.String()],
		})
		return true
	})

	return schema
}

// "type": ["integer", "null"] のような指定は null 以外の最初の型を採用する
func propertyType(t gjson.Result) string {
	if !t.IsArray() {
		return t.String()
	}
	for _, v := range t.Array() {
		if v.String() != "null" {
			return v.String()
		}
	}
	return ""
}

// Format renders the tool in the layout shared by the interactive listing
// and the tools description handed to an LLM.
func (t Tool) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tool: %s\n", t.Name)
	fmt.Fprintf(&b, "Description: %s\n", orNoDescription(t.Description))

	if len(t.InputSchema.Properties) > 0 {
		b.WriteString("Arguments:\n")
		for _, p := range t.InputSchema.Properties {
			requirement := "(optional)"
			if p.Required {
				requirement = "(required)"
			}
			fmt.Fprintf(&b, "  - %s: %s %s\n", p.Name, orNoDescription(p.Description), requirement)
		}
	}

	return b.String()
}

func FormatTools(tools []Tool) string {
	formatted := make([]string, 0, len(tools))
	for _, tool := range tools {
		formatted = append(formatted, tool.Format())
	}
	return strings.Join(formatted, "\n")
}

func orNoDescription(s string) string {
	if s == "" {
		return "No description"
	}
	return s
}
