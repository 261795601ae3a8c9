package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const byeCommand = "/bye"

type HostState int

const (
	HostCollectingTools HostState = iota
	HostReady
	HostTerminated
)

func (s HostState) String() string {
	switch s {
	case HostCollectingTools:
		return "collecting-tools"
	case HostReady:
		return "ready"
	case HostTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("HostState(%d)", int(s))
	}
}

type OutcomeKind int

const (
	OutcomeTerminate OutcomeKind = iota
	OutcomeNotFound
	OutcomeSuccess
	OutcomeFailure
)

// Outcome is the result of dispatching one line of input.
type Outcome struct {
	Kind   OutcomeKind
	Tool   string
	CallID string
	Result *ToolResult
	Err    error
}

// Host drives the interactive loop over the tools of all started servers.
type Host struct {
	registry *Registry
	out      io.Writer
	logger   *slog.Logger
	pause    bool
	state    HostState
}

type HostOption func(*Host)

func WithLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithOutput(w io.Writer) HostOption {
	return func(h *Host) {
		h.out = w
	}
}

// WithPause makes the loop wait for Enter after every tool call.
func WithPause(pause bool) HostOption {
	return func(h *Host) {
		h.pause = pause
	}
}

// NewHost collects the tools of servers and returns a host ready to run.
func NewHost(ctx context.Context, servers []*Server, opts ...HostOption) (*Host, error) {
	h := &Host{
		out:    os.Stdout,
		logger: slog.Default(),
		state:  HostCollectingTools,
	}
	for _, opt := range opts {
		opt(h)
	}

	registry, err := CollectTools(ctx, servers, h.logger)
	if err != nil {
		return nil, err
	}
	h.registry = registry
	h.state = HostReady

	h.logger.DebugContext(ctx, "ツール一覧", slog.String("tools", registry.Describe()))

	return h, nil
}

func (h *Host) State() HostState {
	return h.state
}

func (h *Host) Registry() *Registry {
	return h.registry
}

// Start runs the loop until the user enters /bye, input ends, or ctx is
// done. A failing tool call never ends the loop.
func (h *Host) Start(ctx context.Context, prompter Prompter) error {
	if h.state != HostReady {
		return fmt.Errorf("host is %s", h.state)
	}

	for {
		h.displayTools()

		fmt.Fprintln(h.out)
		line, err := prompter.Prompt(ctx, "Enter tool name to use (or /bye to exit): ")
		if err != nil {
			return h.stop(ctx, err)
		}

		outcome := h.Dispatch(ctx, prompter, line)
		switch outcome.Kind {
		case OutcomeTerminate:
			fmt.Fprintln(h.out, "Goodbye!")
			h.state = HostTerminated
			return nil
		case OutcomeNotFound:
			fmt.Fprintf(h.out, "Tool '%s' not found. Please try again.\n", outcome.Tool)
			continue
		case OutcomeSuccess:
			h.report(ctx, outcome)
		case OutcomeFailure:
			if isInputClosed(ctx, outcome.Err) {
				return h.stop(ctx, outcome.Err)
			}
			errorMessage := fmt.Sprintf("Error executing tool: %v", outcome.Err)
			h.logger.ErrorContext(ctx, errorMessage,
				slog.String("call_id", outcome.CallID),
				slog.String("tool", outcome.Tool),
			)
			fmt.Fprintf(h.out, "\nError: %s\n", errorMessage)
		}

		if h.pause {
			fmt.Fprintln(h.out)
			if _, err := prompter.Prompt(ctx, "Press Enter to continue..."); err != nil {
				return h.stop(ctx, err)
			}
		}
	}
}

// Dispatch handles one line entered at the tool name prompt: it collects
// the arguments of the named tool and executes it.
func (h *Host) Dispatch(ctx context.Context, prompter Prompter, input string) Outcome {
	name := strings.TrimSpace(input)
	if strings.EqualFold(name, byeCommand) {
		return Outcome{Kind: OutcomeTerminate}
	}

	entry, ok := h.registry.Lookup(name)
	if !ok {
		return Outcome{Kind: OutcomeNotFound, Tool: name}
	}

	outcome := Outcome{Tool: name, CallID: uuid.NewString()}
	logger := h.logger.With(
		slog.String("call_id", outcome.CallID),
		slog.String("tool", name),
		slog.String("server", entry.Server.Name()),
	)

	args, err := h.collectArguments(ctx, prompter, entry.Tool)
	if err != nil {
		outcome.Kind, outcome.Err = OutcomeFailure, err
		return outcome
	}

	logger.InfoContext(ctx, "ツールを実行します", slog.Any("arguments", args))
	result, err := entry.Server.ExecuteTool(ctx, name, args)
	if err != nil {
		outcome.Kind, outcome.Err = OutcomeFailure, err
		return outcome
	}

	outcome.Kind, outcome.Result = OutcomeSuccess, result
	return outcome
}

func (h *Host) collectArguments(ctx context.Context, prompter Prompter, tool Tool) (map[string]any, error) {
	args := map[string]any{}
	if len(tool.InputSchema.Properties) == 0 {
		return args, nil
	}

	fmt.Fprintf(h.out, "\nEnter arguments for %s:\n", tool.Name)
	for _, p := range tool.InputSchema.Properties {
		label := p.Name + " (optional, press Enter to skip)"
		if p.Required {
			label = p.Name + " (required)"
		}

		line, err := prompter.Prompt(ctx, label+": ")
		if err != nil {
			return nil, err
		}

		// 必須引数は空でも送る
		value := strings.TrimSpace(line)
		if value == "" {
			if p.Required {
				args[p.Name] = ""
			}
			continue
		}

		v, err := coerceArgument(p, value)
		if err != nil {
			return nil, fmt.Errorf("引数 %s の値が不正です: %w", p.Name, err)
		}
		args[p.Name] = v
	}

	return args, nil
}

func coerceArgument(p Property, value string) (any, error) {
	switch p.Type {
	case "integer":
		return strconv.ParseInt(value, 10, 64)
	case "number":
		return strconv.ParseFloat(value, 64)
	case "boolean":
		return strconv.ParseBool(value)
	case "object", "array":
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return value, nil
	}
}

func (h *Host) report(ctx context.Context, outcome Outcome) {
	result := outcome.Result
	logger := h.logger.With(slog.String("call_id", outcome.CallID), slog.String("tool", outcome.Tool))

	if result.Progress != nil {
		if result.Progress.Total == 0 {
			logger.WarnContext(ctx, "進捗の total が 0 のため割合を計算できません",
				slog.Float64("progress", result.Progress.Progress))
		} else {
			logger.InfoContext(ctx, result.Progress.String())
		}
	}
	if result.IsError {
		logger.WarnContext(ctx, "ツールがエラーを返しました")
	}

	fmt.Fprintln(h.out, "\nTool execution result:")
	fmt.Fprint(h.out, result.Pretty())
}

func (h *Host) displayTools() {
	separator := strings.Repeat("-", 50)

	fmt.Fprintln(h.out, "\nAvailable Tools:")
	fmt.Fprintln(h.out, separator)
	for _, tool := range h.registry.Tools() {
		fmt.Fprintf(h.out, "\n%s", tool.Format())
	}
	fmt.Fprintf(h.out, "\nEnter '%s' to exit the program\n", byeCommand)
	fmt.Fprintln(h.out, separator)
}

// stop ends the loop when input is exhausted or the user interrupted it;
// any other error is returned.
func (h *Host) stop(ctx context.Context, err error) error {
	h.state = HostTerminated
	if !isInputClosed(ctx, err) {
		return err
	}
	fmt.Fprintln(h.out, "\nGoodbye!")
	return nil
}

func isInputClosed(ctx context.Context, err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, ErrPromptAborted) ||
		ctx.Err() != nil
}
