package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
)

// StartSpinner shows msg next to a spinner on w until stop is called.
// Nothing is drawn when quiet is set or w is not a terminal.
func StartSpinner(w io.Writer, quiet bool, msg string) (stop func()) {
	if quiet {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

// Prompter asks for interactive input.
type Prompter interface {
	Line(prompt string) (string, error)
	Password(prompt string) (string, error)
}

// TerminalPrompter reads from the terminal with readline; passwords are not
// echoed.
type TerminalPrompter struct {
	In  io.ReadCloser
	Out io.Writer
}

func (p TerminalPrompter) instance() (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Stdin:  p.In,
		Stdout: p.Out,
	})
}

// Line reads one line of input.
func (p TerminalPrompter) Line(prompt string) (string, error) {
	rl, err := p.instance()
	if err != nil {
		return "", fmt.Errorf("failed to open terminal: %w", err)
	}
	defer rl.Close()
	rl.SetPrompt(prompt)
	line, err := rl.Readline()
	return strings.TrimSpace(line), err
}

// Password reads a secret without echoing it.
func (p TerminalPrompter) Password(prompt string) (string, error) {
	rl, err := p.instance()
	if err != nil {
		return "", fmt.Errorf("failed to open terminal: %w", err)
	}
	defer rl.Close()
	b, err := rl.ReadPassword(prompt)
	return string(b), err
}

// ReaderPrompter answers prompts from a plain reader, one line each. It
// backs --password-stdin and tests.
type ReaderPrompter struct {
	r *bufio.Reader
}

// NewReaderPrompter reads answers from r.
func NewReaderPrompter(r io.Reader) *ReaderPrompter {
	return &ReaderPrompter{r: bufio.NewReader(r)}
}

// Line returns the next line of r.
func (p *ReaderPrompter) Line(string) (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password returns the next line of r.
func (p *ReaderPrompter) Password(prompt string) (string, error) {
	return p.Line(prompt)
}
