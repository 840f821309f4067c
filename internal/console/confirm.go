// Package console owns everything the user sees and answers: interactive
// confirmations, download progress, and the styled run summaries.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is the cancellation signal for interactive flows: the user
// walked away (Ctrl-C, EOF) rather than answering. It is distinct from a
// declined confirmation, which is an ordinary false answer.
var ErrAborted = errors.New("aborted by user")

// Confirmer asks the user yes/no questions and collects free-form values.
// Implementations return ErrAborted when the user cancels the prompt
// itself.
type Confirmer interface {
	// Confirm asks a yes/no question. Declining is (false, nil).
	Confirm(ctx context.Context, question string) (bool, error)

	// Value prompts for a line of input until valid accepts it.
	Value(ctx context.Context, prompt string, valid func(string) error) (string, error)
}

var questionStyle = lipgloss.NewStyle().Bold(true)

// Terminal is the interactive Confirmer used by the CLI.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal creates a Confirmer bound to the given streams.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Confirm renders the question and waits for a y/n keypress.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	prog := tea.NewProgram(confirmModel{question: question},
		tea.WithInput(t.in), tea.WithOutput(t.out), tea.WithContext(ctx))

	final, err := prog.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			return false, ErrAborted
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}

	m := final.(confirmModel)
	if m.aborted {
		return false, ErrAborted
	}
	return m.answer, nil
}

// Value prompts for a line of input, re-asking until valid accepts it.
func (t *Terminal) Value(ctx context.Context, prompt string, valid func(string) error) (string, error) {
	reader := bufio.NewReader(t.in)
	for {
		if err := ctx.Err(); err != nil {
			return "", ErrAborted
		}
		fmt.Fprint(t.out, questionStyle.Render(prompt)+" ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return "", ErrAborted
		}
		line = strings.TrimSpace(line)

		if err := valid(line); err != nil {
			fmt.Fprintf(t.out, "%v\n", err)
			continue
		}
		return line, nil
	}
}

// confirmModel is the one-keypress yes/no prompt.
type confirmModel struct {
	question string
	answer   bool
	aborted  bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.answer = true
		return m, tea.Quit
	case "n", "N", "enter":
		m.answer = false
		return m, tea.Quit
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	return questionStyle.Render(m.question) + " [y/N] "
}
