package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
)

// Session is a live connection to one MCP server.
type Session interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error)
	Close() error
}

// Connector starts the transport for a server and performs the
// initialize handshake.
type Connector interface {
	Connect(ctx context.Context, spec ServerSpec) (Session, error)
}

type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Server owns the session of one configured server. It is not safe for
// concurrent use.
type Server struct {
	Spec ServerSpec

	connector Connector
	session   Session
	state     State
	logger    *slog.Logger
}

func NewServer(spec ServerSpec, connector Connector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Spec:      spec,
		connector: connector,
		logger:    logger.With(slog.String("server", spec.Name)),
	}
}

func (s *Server) Name() string {
	return s.Spec.Name
}

func (s *Server) State() State {
	return s.state
}

func (s *Server) Initialize(ctx context.Context) error {
	if s.state != StateUninitialized {
		return fmt.Errorf("%w: %s: state is %s", ErrServerInit, s.Name(), s.state)
	}

	session, err := s.connector.Connect(ctx, s.Spec)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrServerInit, s.Name(), err)
	}

	s.session = session
	s.state = StateInitialized
	s.logger.InfoContext(ctx, "サーバーを初期化しました", slog.String("transport", string(s.Spec.Transport)))

	return nil
}

func (s *Server) ListTools(ctx context.Context) ([]Tool, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	tools, err := s.session.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: ツール一覧の取得に失敗しました: %w", s.Name(), err)
	}

	for i := range tools {
		tools[i].Server = s.Name()
	}
	s.logger.DebugContext(ctx, "ツール一覧を取得しました", slog.Int("count", len(tools)))

	return tools, nil
}

// ExecuteTool issues one tools/call. An error is returned only when the
// call itself failed; a tool that reports failure yields a result with
// IsError set.
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	result, err := s.session.CallTool(ctx, name, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrToolExecution, name, err)
	}

	return result, nil
}

// Cleanup closes the session. Calling it more than once is a no-op and
// errors are only logged.
func (s *Server) Cleanup() {
	if err := s.close(); err != nil {
		s.logger.Warn("サーバーの終了処理でエラーが発生しました", slog.Any("error", err))
	}
}

func (s *Server) close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	if s.session == nil {
		return nil
	}
	session := s.session
	s.session = nil

	if err := session.Close(); err != nil {
		return err
	}
	s.logger.Debug("サーバーを終了しました")

	return nil
}

func (s *Server) ready() error {
	switch s.state {
	case StateInitialized:
		return nil
	case StateClosed:
		return fmt.Errorf("%w: %s", ErrServerClosed, s.Name())
	default:
		return fmt.Errorf("%w: %s", ErrServerNotInitialized, s.Name())
	}
}

// StartServers initializes the servers one after another. If any of them
// fails, the ones already started are cleaned up and the error returned.
func StartServers(ctx context.Context, specs []ServerSpec, connector Connector, logger *slog.Logger) ([]*Server, error) {
	servers := make([]*Server, 0, len(specs))

	// clientとserverは1:1
	for _, spec := range specs {
		server := NewServer(spec, connector, logger)
		if err := server.Initialize(ctx); err != nil {
			CloseServers(servers, logger)
			return nil, err
		}
		servers = append(servers, server)
	}

	return servers, nil
}

// CloseServers cleans up every server in reverse start order. Failures are
// collected and logged; they never fail the caller.
func CloseServers(servers []*Server, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	var result *multierror.Error
	for i := len(servers) - 1; i >= 0; i-- {
		if err := servers[i].close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", servers[i].Name(), err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Warn("サーバーの終了処理でエラーが発生しました", slog.Any("error", err))
	}
}
