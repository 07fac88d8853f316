package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quiby-ai/staffdesk/pkg/editor"
	"github.com/quiby-ai/staffdesk/pkg/employee"
)

type (
	// changedMsg reports that the controller view or a pending question
	// changed.
	changedMsg struct{}

	// doneMsg ends a save or delete once its remote call has settled.
	doneMsg struct{ err error }
)

const formHelp = "tab/shift+tab move • ctrl+s save • ctrl+x delete • esc leave"

// editModel drives one edit session. Each field has its own text input;
// typed values and focus changes go to the controller, and the controller's
// view decides what is shown under the inputs.
type editModel struct {
	ctx     context.Context
	c       *editor.Controller
	nav     *exitNavigator
	confirm *formConfirmer
	changes wake

	inputs []textinput.Model
	focus  int
	view   editor.View

	busy    bool   // a save or delete is in flight
	asking  bool   // the next key answers the controller's question
	leaving string // leave question waiting for an answer

	route string // where the controller navigated once done
	left  bool   // left with unsaved changes dropped
	err   error
}

func newEditModel(ctx context.Context, c *editor.Controller, nav *exitNavigator, confirm *formConfirmer, changes wake, v editor.View) editModel {
	m := editModel{
		ctx:     ctx,
		c:       c,
		nav:     nav,
		confirm: confirm,
		changes: changes,
		view:    v,
		inputs:  make([]textinput.Model, len(employee.Fields)),
	}
	for i, f := range employee.Fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = f
		in.SetValue(v.Values[f])
		m.inputs[i] = in
	}
	m.inputs[0].Focus()
	return m
}

func (m editModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.changes.wait(m.ctx))
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		if err := m.sync(); err != nil {
			return m.fail(err)
		}
		return m, m.changes.wait(m.ctx)

	case doneMsg:
		m.busy, m.asking = false, false
		m.confirm.Reset()
		if msg.err != nil {
			return m.fail(msg.err)
		}
		if err := m.sync(); err != nil {
			return m.fail(err)
		}
		select {
		case route := <-m.nav.done:
			m.route = route
			return m, tea.Quit
		default:
			return m, nil
		}

	case tea.KeyMsg:
		return m.key(msg)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m editModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case m.leaving != "":
		return m.answerLeave(strings.EqualFold(k, "y"))
	case m.asking:
		m.confirm.Answer(strings.EqualFold(k, "y"))
		m.asking = false
		return m, nil
	}

	switch k {
	case "ctrl+s":
		if m.busy {
			return m, nil
		}
		if err := m.c.Save(m.ctx); err != nil {
			return m.fail(err)
		}
		if err := m.sync(); err != nil {
			return m.fail(err)
		}
		m.busy = true
		return m, m.await(nil)

	case "ctrl+x":
		if m.busy {
			return m, nil
		}
		m.busy, m.asking = true, true
		return m, m.await(m.c.Delete)

	case "esc", "ctrl+c":
		prompt, ask := editor.LeavePrompt(m.view)
		if !ask {
			return m, tea.Quit
		}
		m.leaving = prompt
		return m, nil

	case "tab", "down":
		return m.move(1)

	case "shift+tab", "up":
		return m.move(len(m.inputs) - 1)
	}

	before := m.inputs[m.focus].Value()
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if after := m.inputs[m.focus].Value(); after != before {
		if err := m.c.SetValue(m.ctx, employee.Fields[m.focus], after); err != nil {
			return m.fail(err)
		}
		if err := m.sync(); err != nil {
			return m.fail(err)
		}
	}
	return m, cmd
}

// move blurs the focused field and focuses the one step positions on.
func (m editModel) move(step int) (tea.Model, tea.Cmd) {
	m.inputs[m.focus].Blur()
	if err := m.c.Blur(m.ctx, employee.Fields[m.focus]); err != nil {
		return m.fail(err)
	}
	m.focus = (m.focus + step) % len(m.inputs)
	return m, m.inputs[m.focus].Focus()
}

func (m editModel) answerLeave(yes bool) (tea.Model, tea.Cmd) {
	m.leaving = ""
	if editor.Guard{Confirmer: answered(yes)}.CanDeactivate(m.ctx, m.view) {
		m.left = true
		return m, tea.Quit
	}
	return m, nil
}

// await runs action off the update loop and reports once every remote call
// it started has settled.
func (m editModel) await(action func(context.Context) error) tea.Cmd {
	ctx, c := m.ctx, m.c
	return func() tea.Msg {
		if action != nil {
			if err := action(ctx); err != nil {
				return doneMsg{err: err}
			}
		}
		return doneMsg{err: c.Wait(ctx)}
	}
}

func (m *editModel) sync() error {
	v, err := m.c.Snapshot(m.ctx)
	if err != nil {
		return err
	}
	m.view = v
	return nil
}

func (m editModel) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	return m, tea.Quit
}

func (m editModel) View() string {
	if m.route != "" || m.left || m.err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.view.Title) + "\n\n")
	for i, f := range employee.Fields {
		b.WriteString(labelStyle.Render(f) + m.inputs[i].View() + "\n")
		if text := m.view.Messages[f]; text != "" {
			b.WriteString(labelStyle.Render("") + errorStyle.Render(text) + "\n")
		}
	}
	b.WriteString("\n")

	if m.view.Error != "" {
		b.WriteString(errorStyle.Render(m.view.Error) + "\n")
	}
	switch {
	case m.leaving != "":
		b.WriteString(promptStyle.Render(m.leaving) + helpStyle.Render(" [y/N]") + "\n")
	case m.asking && m.confirm.Pending() != "":
		b.WriteString(promptStyle.Render(m.confirm.Pending()) + helpStyle.Render(" [y/N]") + "\n")
	case m.view.Busy():
		b.WriteString(helpStyle.Render(m.view.State.String()+"...") + "\n")
	default:
		b.WriteString(helpStyle.Render(formHelp) + "\n")
	}
	return b.String()
}
