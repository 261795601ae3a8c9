package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tidwall/gjson"
)

const (
	clientName    = "mcp-cli-go"
	clientVersion = "0.1.0"
)

// SDKConnector opens sessions with the MCP Go SDK. The SDK performs the
// initialize request and the notifications/initialized notification.
type SDKConnector struct {
	client *mcpsdk.Client
	logger *slog.Logger
}

func NewSDKConnector(logger *slog.Logger) *SDKConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SDKConnector{
		client: mcpsdk.NewClient(&mcpsdk.Implementation{Name: clientName, Version: clientVersion}, nil),
		logger: logger,
	}
}

func (c *SDKConnector) Connect(ctx context.Context, spec ServerSpec) (Session, error) {
	transport, err := c.newTransport(spec)
	if err != nil {
		return nil, err
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}

	return &sdkSession{session: session}, nil
}

func (c *SDKConnector) newTransport(spec ServerSpec) (mcpsdk.Transport, error) {
	switch spec.Transport {
	case TransportStdio:
		cmd := newCommand(spec)
		cmd.Stderr = &stderrLogger{logger: c.logger.With(slog.String("server", spec.Name))}
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	case TransportStreamable:
		return &mcpsdk.StreamableClientTransport{
			Endpoint:   spec.URL,
			HTTPClient: newHTTPClient(spec.Headers),
		}, nil
	case TransportSSE:
		return &mcpsdk.SSEClientTransport{
			Endpoint:   spec.URL,
			HTTPClient: newHTTPClient(spec.Headers),
		}, nil
	default:
		return nil, fmt.Errorf("未対応のトランスポートです: %q", spec.Transport)
	}
}

func newCommand(spec ServerSpec) *exec.Cmd {
	cmd := exec.Command(spec.Command, spec.Args...)
	if len(spec.Env) > 0 {
		keys := make([]string, 0, len(spec.Env))
		for k := range spec.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		env := os.Environ()
		for _, k := range keys {
			env = append(env, k+"="+spec.Env[k])
		}
		cmd.Env = env
	}
	return cmd
}

// stderrLogger forwards the stderr of a server process to the debug log,
// one record per line.
type stderrLogger struct {
	logger  *slog.Logger
	pending []byte
}

func (w *stderrLogger) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.logger.Debug("server stderr", slog.String("line", string(bytes.TrimRight(w.pending[:i], "\r"))))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}

func newHTTPClient(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return http.DefaultClient
	}
	return &http.Client{Transport: &headerRoundTripper{headers: headers, next: http.DefaultTransport}}
}

type sdkSession struct {
	session *mcpsdk.ClientSession
}

func (s *sdkSession) ListTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool

	params := &mcpsdk.ListToolsParams{}
	for {
		result, err := s.session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}

		for _, t := range result.Tools {
			tool, err := convertTool(t)
			if err != nil {
				return nil, err
			}
			tools = append(tools, tool)
		}

		if result.NextCursor == "" {
			break
		}
		params = &mcpsdk.ListToolsParams{Cursor: result.NextCursor}
	}

	return tools, nil
}

func (s *sdkSession) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	result, err := s.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	return convertResult(result)
}

func (s *sdkSession) Close() error {
	return s.session.Close()
}

func convertTool(t *mcpsdk.Tool) (Tool, error) {
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return Tool{}, fmt.Errorf("ツール %s のinputSchemaを変換できません: %w", t.Name, err)
	}

	return Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: ParseInputSchema(raw),
	}, nil
}

func convertResult(result *mcpsdk.CallToolResult) (*ToolResult, error) {
	blocks := make([]ContentBlock, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			blocks = append(blocks, ContentBlock{Type: "text", Text: text.Text})
			continue
		}

		// テキスト以外は type のみ残す
		raw, err := json.Marshal(content)
		if err != nil {
			return nil, fmt.Errorf("コンテンツを変換できません: %w", err)
		}
		blocks = append(blocks, ContentBlock{Type: gjson.GetBytes(raw, "type").String()})
	}

	var structured json.RawMessage
	if result.StructuredContent != nil {
		raw, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("structuredContentを変換できません: %w", err)
		}
		structured = raw
	}

	return NewToolResult(blocks, structured, result.IsError), nil
}
