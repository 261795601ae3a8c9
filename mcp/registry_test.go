package mcp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func startFakeServers(t *testing.T, connector *fakeConnector, names ...string) []*Server {
	t.Helper()
	specs := make([]ServerSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, ServerSpec{Name: name})
	}
	servers, err := StartServers(context.Background(), specs, connector, nil)
	if err != nil {
		t.Fatalf("StartServers: %v", err)
	}
	return servers
}

func TestCollectTools_Union(t *testing.T) {
	connector := newFakeConnector()
	connector.sessions["calc"] = &fakeSession{tools: []Tool{{Name: "add"}, {Name: "sub"}}}
	connector.sessions["clock"] = &fakeSession{tools: []Tool{{Name: "now"}}}
	servers := startFakeServers(t, connector, "calc", "clock")

	registry, err := CollectTools(context.Background(), servers, nil)
	if err != nil {
		t.Fatalf("CollectTools: %v", err)
	}

	if diff := cmp.Diff([]string{"add", "sub", "now"}, registry.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	entry, ok := registry.Lookup("now")
	if !ok {
		t.Fatal("expected 'now' to be registered")
	}
	if entry.Server.Name() != "clock" {
		t.Errorf("expected 'now' to belong to clock, got %s", entry.Server.Name())
	}

	if _, ok := registry.Lookup("mul"); ok {
		t.Error("expected 'mul' to be absent")
	}
}

func TestCollectTools_LaterServerWins(t *testing.T) {
	var buf bytes.Buffer
	connector := newFakeConnector()
	connector.sessions["first"] = &fakeSession{tools: []Tool{{Name: "search", Description: "from first"}, {Name: "fetch"}}}
	connector.sessions["second"] = &fakeSession{tools: []Tool{{Name: "search", Description: "from second"}}}
	servers := startFakeServers(t, connector, "first", "second")

	registry, err := CollectTools(context.Background(), servers, newTestLogger(&buf))
	if err != nil {
		t.Fatalf("CollectTools: %v", err)
	}

	if registry.Len() != 2 {
		t.Fatalf("expected 2 tools, got %d", registry.Len())
	}

	entry, _ := registry.Lookup("search")
	if entry.Server.Name() != "second" || entry.Tool.Description != "from second" {
		t.Errorf("expected second server to win, got %s (%s)", entry.Server.Name(), entry.Tool.Description)
	}

	// 表示順は最初に登場した順のまま
	if diff := cmp.Diff([]string{"search", "fetch"}, registry.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(buf.String(), "previous=first") {
		t.Errorf("expected collision warning, got:\n%s", buf.String())
	}
}

func TestCollectTools_ListFailure(t *testing.T) {
	cause := errors.New("method not found")
	connector := newFakeConnector()
	connector.sessions["broken"] = &fakeSession{listErr: cause}
	servers := startFakeServers(t, connector, "broken")

	registry, err := CollectTools(context.Background(), servers, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected list error, got %v", err)
	}
	if registry != nil {
		t.Error("expected nil registry")
	}
}

func TestRegistry_Describe(t *testing.T) {
	connector := newFakeConnector()
	connector.sessions["calc"] = &fakeSession{tools: []Tool{{Name: "add", Description: "Add"}, {Name: "sub", Description: "Subtract"}}}
	servers := startFakeServers(t, connector, "calc")

	registry, err := CollectTools(context.Background(), servers, nil)
	if err != nil {
		t.Fatalf("CollectTools: %v", err)
	}

	want := "Tool: add\nDescription: Add\n\nTool: sub\nDescription: Subtract\n"
	if got := registry.Describe(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
