package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/peterh/liner"
)

// ErrPromptAborted is returned when the user interrupts a prompt.
var ErrPromptAborted = errors.New("入力が中断されました")

// Prompter reads one line of user input per call. Prompt returns io.EOF
// once input is exhausted and ctx.Err() when ctx is done first.
type Prompter interface {
	Prompt(ctx context.Context, text string) (string, error)
	Close() error
}

type lineResult struct {
	line string
	err  error
}

type linePrompter struct {
	w     io.Writer
	lines chan lineResult
	done  chan struct{}
	once  sync.Once
}

// NewLinePrompter reads plain lines from r and writes prompts to w.
func NewLinePrompter(r io.Reader, w io.Writer) Prompter {
	p := &linePrompter{
		w:     w,
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
	go p.read(bufio.NewScanner(r))
	return p
}

func (p *linePrompter) read(scanner *bufio.Scanner) {
	defer close(p.lines)

	for scanner.Scan() {
		select {
		case p.lines <- lineResult{line: scanner.Text()}:
		case <-p.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case p.lines <- lineResult{err: fmt.Errorf("標準入力の読み取り中にエラーが発生しました: %w", err)}:
		case <-p.done:
		}
	}
}

func (p *linePrompter) Prompt(ctx context.Context, text string) (string, error) {
	fmt.Fprint(p.w, text)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	}
}

func (p *linePrompter) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

type terminalPrompter struct {
	state *liner.State
}

// NewTerminalPrompter returns a line editor that completes the given
// words. History is kept in memory only.
func NewTerminalPrompter(completions []string) Prompter {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) (c []string) {
		for _, word := range completions {
			if strings.HasPrefix(word, line) {
				c = append(c, word)
			}
		}
		return
	})
	return &terminalPrompter{state: state}
}

func (p *terminalPrompter) Prompt(ctx context.Context, text string) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.state.Prompt(text)
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if errors.Is(r.err, liner.ErrPromptAborted) {
			return "", ErrPromptAborted
		}
		if r.err == nil && strings.TrimSpace(r.line) != "" {
			p.state.AppendHistory(r.line)
		}
		return r.line, r.err
	}
}

func (p *terminalPrompter) Close() error {
	return p.state.Close()
}
