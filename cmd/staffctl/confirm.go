package main

import (
	"context"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/quiby-ai/staffdesk/pkg/obs"
)

// confirmModel asks a single yes or no question. Anything but y declines.
type confirmModel struct {
	prompt   string
	answer   bool
	answered bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "y":
		m.answer = true
	case "n", "enter", "esc", "ctrl+c":
	default:
		return m, nil
	}
	m.answered = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	var reply string
	if m.answered {
		reply = "no"
		if m.answer {
			reply = "yes"
		}
	}
	return promptStyle.Render(m.prompt) + helpStyle.Render(" [y/N] ") + reply + "\n"
}

// programConfirmer asks each question in its own terminal program.
type programConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p programConfirmer) Confirm(ctx context.Context, prompt string) bool {
	final, err := tea.NewProgram(confirmModel{prompt: prompt}, programOptions(ctx, p.in, p.out)...).Run()
	if err != nil {
		obs.Warn(ctx, "confirmation aborted", "error", err.Error())
		return false
	}
	m, ok := final.(confirmModel)
	return ok && m.answer
}

// answered is a Confirmer for a question the user already answered.
type answered bool

func (a answered) Confirm(context.Context, string) bool { return bool(a) }

// wake coalesces change notifications for a running form.
type wake chan struct{}

func (w wake) notify() {
	select {
	case w <- struct{}{}:
	default:
	}
}

// wait returns a command that delivers changedMsg on the next notification.
func (w wake) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-w:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// formConfirmer answers the controller's questions with keys typed into the
// edit form. One answer is held until a question asks for it.
type formConfirmer struct {
	mu      sync.Mutex
	prompt  string
	answers chan bool
	changes wake
}

func newFormConfirmer(changes wake) *formConfirmer {
	return &formConfirmer{answers: make(chan bool, 1), changes: changes}
}

func (f *formConfirmer) Confirm(ctx context.Context, prompt string) bool {
	f.setPrompt(prompt)
	defer f.setPrompt("")

	select {
	case ok := <-f.answers:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (f *formConfirmer) setPrompt(prompt string) {
	f.mu.Lock()
	f.prompt = prompt
	f.mu.Unlock()
	f.changes.notify()
}

// Pending returns the question waiting for an answer, if any.
func (f *formConfirmer) Pending() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompt
}

// Answer hands ok to the current or next question. A second answer before
// the first is taken is dropped.
func (f *formConfirmer) Answer(ok bool) {
	select {
	case f.answers <- ok:
	default:
	}
}

// Reset drops an answer that no question took.
func (f *formConfirmer) Reset() {
	select {
	case <-f.answers:
	default:
	}
}
