package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrCancelled is returned when the user dismisses a prompt.
var ErrCancelled = errors.New("ui: prompt cancelled")

// Prompter asks the user for confirmation or a line of text.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
	Prompt(ctx context.Context, label string) (string, error)
	// PromptSecret reads a line without echoing it, where the input allows.
	PromptSecret(ctx context.Context, label string) (string, error)
}

type lineResult struct {
	line string
	err  error
}

// TerminalPrompter reads answers from a line-oriented reader. A single
// goroutine does all reads, one per request, so a prompt abandoned through
// its context hands the line typed afterwards to the next prompt.
type TerminalPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// tty is set when in is a terminal; secrets are then read with echo off.
	tty          bool
	fd           int
	readPassword func(fd int) ([]byte, error)

	start   sync.Once
	reqs    chan bool
	results chan lineResult
	pending bool
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	p := &TerminalPrompter{
		in:           bufio.NewReader(in),
		out:          out,
		readPassword: term.ReadPassword,
		reqs:         make(chan bool),
		results:      make(chan lineResult, 1),
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		p.fd = int(f.Fd())
	}
	return p
}

// reader serves read requests for the life of the prompter. A true request
// reads a password from the terminal.
func (p *TerminalPrompter) reader() {
	for secret := range p.reqs {
		var r lineResult
		if secret {
			b, err := p.readPassword(p.fd)
			fmt.Fprintln(p.out)
			r = lineResult{line: string(b), err: err}
		} else {
			r.line, r.err = p.in.ReadString('\n')
		}
		p.results <- r
	}
}

// readLine must be called with p.mu held.
func (p *TerminalPrompter) readLine(ctx context.Context, secret bool) (string, error) {
	p.start.Do(func() { go p.reader() })
	if !p.pending {
		p.reqs <- secret && p.tty
		p.pending = true
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-p.results:
		p.pending = false
		if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
			if errors.Is(r.err, io.EOF) {
				return "", ErrCancelled
			}
			return "", r.err
		}
		return strings.TrimRight(r.line, "\r\n"), nil
	}
}

// Confirm asks a yes/no question. Anything but y/yes is a no.
func (p *TerminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.readLine(ctx, false)
	if errors.Is(err, ErrCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Prompt reads one line. An empty answer is returned as ErrCancelled.
func (p *TerminalPrompter) Prompt(ctx context.Context, label string) (string, error) {
	return p.prompt(ctx, label, false)
}

// PromptSecret is Prompt with echo off when the input is a terminal. Piped
// input is read as a plain line.
func (p *TerminalPrompter) PromptSecret(ctx context.Context, label string) (string, error) {
	return p.prompt(ctx, label, true)
}

func (p *TerminalPrompter) prompt(ctx context.Context, label string, secret bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s ", label)
	line, err := p.readLine(ctx, secret)
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrCancelled
	}
	return line, nil
}

// ScriptedPrompter answers from fixed values. It backs non-interactive runs
// (--yes) and tests, and records the questions it was asked.
type ScriptedPrompter struct {
	mu     sync.Mutex
	Answer bool
	Values []string
	Asked  []string
}

func (p *ScriptedPrompter) Confirm(_ context.Context, question string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Asked = append(p.Asked, question)
	return p.Answer, nil
}

func (p *ScriptedPrompter) Prompt(_ context.Context, label string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Asked = append(p.Asked, label)
	if len(p.Values) == 0 {
		return "", ErrCancelled
	}
	v := p.Values[0]
	p.Values = p.Values[1:]
	return v, nil
}

// PromptSecret answers like Prompt; scripted values are never echoed.
func (p *ScriptedPrompter) PromptSecret(ctx context.Context, label string) (string, error) {
	return p.Prompt(ctx, label)
}
