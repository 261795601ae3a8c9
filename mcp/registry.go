package mcp

import (
	"context"
	"fmt"
	"log/slog"
)

type RegistryEntry struct {
	Server *Server
	Tool   Tool
}

// Registry maps tool names to the server that executes them. It is built
// once by CollectTools and never modified afterwards.
type Registry struct {
	entries map[string]RegistryEntry
	order   []string
}

// CollectTools lists the tools of every server in order. When two servers
// advertise the same name, the later server wins.
func CollectTools(ctx context.Context, servers []*Server, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{entries: make(map[string]RegistryEntry)}
	for _, server := range servers {
		tools, err := server.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("ツール一覧の取得に失敗しました: %w", err)
		}

		for _, tool := range tools {
			if prev, ok := r.entries[tool.Name]; ok {
				logger.WarnContext(ctx, "同名のツールを上書きします",
					slog.String("tool", tool.Name),
					slog.String("previous", prev.Server.Name()),
					slog.String("server", server.Name()),
				)
			} else {
				r.order = append(r.order, tool.Name)
			}
			r.entries[tool.Name] = RegistryEntry{Server: server, Tool: tool}
		}
	}

	return r, nil
}

func (r *Registry) Lookup(name string) (RegistryEntry, bool) {
	entry, ok := r.entries[name]
	return entry, ok
}

// Tools returns the registered tools in the order their names were first
// seen.
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.entries[name].Tool)
	}
	return tools
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Describe returns the combined tools description block.
func (r *Registry) Describe() string {
	return FormatTools(r.Tools())
}
