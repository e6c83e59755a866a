// Package ui provides the interactive terminal list.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nibzard/todo-go/internal/todo"
)

// TaskList is the part of the task store the screen drives.
type TaskList interface {
	Tasks() []todo.Task
	Add(title string) []todo.Task
	ToggleCompleted(id string) []todo.Task
	UpdateTitle(id, title string) []todo.Task
	Delete(id string) []todo.Task
	LastError() error
}

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

type tuiConfig struct {
	tickInterval time.Duration
	loadErr      error
}

// WithTickInterval sets how often the screen polls for persistence errors.
func WithTickInterval(d time.Duration) TUIOption {
	return func(c *tuiConfig) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithLoadError shows err in the status line on startup.
func WithLoadError(err error) TUIOption {
	return func(c *tuiConfig) {
		c.loadErr = err
	}
}

// RunTUI runs the task list screen until the user quits or ctx is done.
func RunTUI(ctx context.Context, tasks TaskList, opts ...TUIOption) error {
	c := &tuiConfig{tickInterval: time.Second}
	for _, opt := range opts {
		opt(c)
	}

	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(tasks, c)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeConfirmDelete
)

type tuiModel struct {
	store        TaskList
	tasks        []todo.Task
	cursor       int
	mode         mode
	input        textinput.Model
	target       string // id being edited or deleted
	status       string
	lastErr      error
	tickInterval time.Duration
}

type tickMsg time.Time

func newTUIModel(store TaskList, c *tuiConfig) *tuiModel {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	m := &tuiModel{
		store:        store,
		tasks:        store.Tasks(),
		input:        ti,
		status:       "Press 'a' to add, space to toggle, 'd' to delete.",
		tickInterval: c.tickInterval,
	}
	if c.loadErr != nil {
		m.status = "Load failed: " + c.loadErr.Error()
	}
	return m
}

func (m *tuiModel) Init() tea.Cmd {
	return tickCmd(m.tickInterval)
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg.String())
		default:
			return m.updateList(msg.String())
		}
	case tea.WindowSizeMsg:
		if msg.Width > 10 {
			m.input.Width = msg.Width - 10
		}
	case tickMsg:
		m.checkPersistError()
		return m, tickCmd(m.tickInterval)
	}
	return m, nil
}

func (m *tuiModel) updateList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		m.cursor = clampCursor(m.cursor+1, len(m.tasks))
	case "k", "up":
		m.cursor = clampCursor(m.cursor-1, len(m.tasks))
	case "a":
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Focus()
		m.status = "Add: type a title and press Enter (esc to cancel)"
	case "e":
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		m.mode = modeEdit
		m.target = t.ID
		m.input.SetValue(t.Title)
		m.input.CursorEnd()
		m.input.Focus()
		m.status = "Edit: change the title and press Enter (esc to cancel)"
	case " ", "space", "enter":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		msg := "Marked as done"
		if t.Completed {
			msg = "Marked as not done"
		}
		m.apply(m.store.ToggleCompleted(t.ID), msg)
	case "d":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.target = t.ID
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	}
	return m, nil
}

func (m *tuiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.leaveInput()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		title := m.input.Value()
		if todo.IsBlank(title) {
			m.status = "Title cannot be empty"
			return m, nil
		}
		if m.mode == modeAdd {
			m.apply(m.store.Add(title), "Added task")
			m.cursor = clampCursor(len(m.tasks)-1, len(m.tasks))
		} else {
			m.apply(m.store.UpdateTitle(m.target, title), "Updated task")
		}
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *tuiModel) updateConfirmDelete(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		m.apply(m.store.Delete(m.target), "Deleted task")
	case "ctrl+c":
		return m, tea.Quit
	default:
		m.status = "Delete cancelled"
	}
	m.mode = modeList
	m.target = ""
	return m, nil
}

func (m *tuiModel) leaveInput() {
	m.mode = modeList
	m.target = ""
	m.input.SetValue("")
	m.input.Blur()
}

// apply shows the list returned by a mutation. A new write failure replaces msg.
func (m *tuiModel) apply(tasks []todo.Task, msg string) {
	m.tasks = tasks
	m.cursor = clampCursor(m.cursor, len(m.tasks))
	m.status = msg
	m.checkPersistError()
}

func (m *tuiModel) checkPersistError() {
	err := m.store.LastError()
	if err != nil && err != m.lastErr {
		m.status = "Save failed: " + err.Error()
	}
	m.lastErr = err
}

func (m *tuiModel) selected() (todo.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return todo.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b, m.tasks)

	if len(m.tasks) == 0 {
		b.WriteString("  No tasks yet. Press 'a' to add one.\n")
	}
	for i, t := range m.tasks {
		b.WriteString(formatTask(t, i == m.cursor && m.mode != modeAdd))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.mode == modeAdd || m.mode == modeEdit {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.status)
	b.WriteString("\n")
	writeFooter(&b)
	return b.String()
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func writeTitle(b *strings.Builder, tasks []todo.Task) {
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}
	title := fmt.Sprintf("Todo (%d/%d done)", done, len(tasks))
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("j/k move | a add | e edit | space toggle | d delete | q quit\n")
}

func formatTask(t todo.Task, current bool) string {
	cursor := " "
	if current {
		cursor = ">"
	}
	checkbox := "[ ]"
	if t.Completed {
		checkbox = "[x]"
	}
	return fmt.Sprintf("%s %s %s", cursor, checkbox, t.Title)
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
