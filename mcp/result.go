package mcp

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the outcome of one tools/call. IsError reports a failure
// the tool itself declared; transport failures never produce a ToolResult.
type ToolResult struct {
	Content    []ContentBlock
	Structured json.RawMessage
	IsError    bool
	// Progress is set when the payload carries numeric "progress" and
	// "total" fields.
	Progress *Progress
}

type Progress struct {
	Progress float64
	Total    float64
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return p.Progress / p.Total * 100
}

func (p Progress) String() string {
	return fmt.Sprintf("Progress: %s/%s (%.1f%%)", formatNumber(p.Progress), formatNumber(p.Total), p.Percent())
}

func NewToolResult(content []ContentBlock, structured json.RawMessage, isError bool) *ToolResult {
	r := &ToolResult{
		Content:    content,
		Structured: structured,
		IsError:    isError,
	}
	r.Progress = progressOf(r.Payload())
	return r
}

func progressOf(payload []byte) *Progress {
	progress := gjson.GetBytes(payload, "progress")
	total := gjson.GetBytes(payload, "total")
	if progress.Type != gjson.Number || total.Type != gjson.Number {
		return nil
	}
	return &Progress{Progress: progress.Float(), Total: total.Float()}
}

// Payload returns the JSON document that represents the result: the
// structured content when the server sent one, a lone JSON text block, or
// else the whole result.
func (r *ToolResult) Payload() []byte {
	if len(r.Structured) > 0 && gjson.ValidBytes(r.Structured) {
		return r.Structured
	}

	if len(r.Content) == 1 && r.Content[0].Type == "text" {
		text := gjson.Parse(r.Content[0].Text)
		if gjson.Valid(r.Content[0].Text) && (text.IsObject() || text.IsArray()) {
			return []byte(r.Content[0].Text)
		}
	}

	content := r.Content
	if content == nil {
		content = []ContentBlock{}
	}
	b, err := json.Marshal(struct {
		Content []ContentBlock `json:"content"`
		IsError bool           `json:"isError,omitempty"`
	}{content, r.IsError})
	if err != nil {
		return []byte("{}")
	}
	return b
}

// Pretty returns the payload as indented JSON.
func (r *ToolResult) Pretty() string {
	return string(pretty.Pretty(r.Payload()))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
