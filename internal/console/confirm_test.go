package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminal_ValueAcceptsValidInput(t *testing.T) {
	term := NewTerminal(strings.NewReader("paper\n"), &bytes.Buffer{})

	v, err := term.Value(context.Background(), "Replacement?", func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "paper", v)
}

func TestTerminal_ValueReasksUntilValid(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("fabric\npaper\n"), &out)

	valid := func(v string) error {
		if v != "paper" {
			return errors.New("not an available server build")
		}
		return nil
	}

	v, err := term.Value(context.Background(), "Replacement?", valid)
	require.NoError(t, err)
	assert.Equal(t, "paper", v)
	assert.Contains(t, out.String(), "not an available server build")
}

func TestTerminal_ValueEOFIsAbort(t *testing.T) {
	term := NewTerminal(strings.NewReader(""), &bytes.Buffer{})

	_, err := term.Value(context.Background(), "Replacement?", func(string) error { return nil })
	assert.ErrorIs(t, err, ErrAborted)
}

func TestTerminal_ValueCancelledContextIsAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	term := NewTerminal(strings.NewReader("paper\n"), &bytes.Buffer{})
	_, err := term.Value(ctx, "Replacement?", func(string) error { return nil })
	assert.ErrorIs(t, err, ErrAborted)
}

func TestConfirmModel_Keys(t *testing.T) {
	cases := []struct {
		key     string
		answer  bool
		aborted bool
	}{
		{key: "y", answer: true},
		{key: "Y", answer: true},
		{key: "n"},
		{key: "N"},
		{key: "enter"},
		{key: "ctrl+c", aborted: true},
		{key: "esc", aborted: true},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			var msg tea.KeyMsg
			switch tc.key {
			case "enter":
				msg = tea.KeyMsg{Type: tea.KeyEnter}
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			default:
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tc.key)}
			}

			model, cmd := confirmModel{question: "Sure?"}.Update(msg)
			m := model.(confirmModel)
			assert.NotNil(t, cmd, "every decisive key quits the prompt")
			assert.Equal(t, tc.answer, m.answer)
			assert.Equal(t, tc.aborted, m.aborted)
		})
	}
}

func TestConfirmModel_IgnoresOtherKeys(t *testing.T) {
	model, cmd := confirmModel{question: "Sure?"}.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m := model.(confirmModel)
	assert.Nil(t, cmd)
	assert.False(t, m.answer)
	assert.False(t, m.aborted)
}

func TestConfirmModel_ViewShowsQuestion(t *testing.T) {
	v := confirmModel{question: "Remove it?"}.View()
	assert.Contains(t, v, "Remove it?")
	assert.Contains(t, v, "[y/N]")
}
