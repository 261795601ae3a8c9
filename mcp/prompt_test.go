package mcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("add\n  2  \n"), &out)
	defer p.Close()
	ctx := context.Background()

	line, err := p.Prompt(ctx, "tool: ")
	if err != nil || line != "add" {
		t.Fatalf("expected 'add', got %q (%v)", line, err)
	}

	line, err = p.Prompt(ctx, "a: ")
	if err != nil || line != "  2  " {
		t.Fatalf("expected raw line, got %q (%v)", line, err)
	}

	if _, err := p.Prompt(ctx, "b: "); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if _, err := p.Prompt(ctx, "c: "); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF again, got %v", err)
	}

	if got := out.String(); got != "tool: a: b: c: " {
		t.Errorf("unexpected prompt output %q", got)
	}
}

func TestLinePrompter_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	p := NewLinePrompter(r, io.Discard)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Prompt(ctx, "> "); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
