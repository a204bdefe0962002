package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/msgscope/internal/styles"
)

// maxToasts is the number of toasts kept on screen; older ones are dropped.
const maxToasts = 3

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastError
)

type toast struct {
	id    int
	level toastLevel
	text  string
}

// toastExpiredMsg removes the toast with the given id.
type toastExpiredMsg struct {
	id int
}

// NotifyMsg asks the TUI to show an error toast. It is sent from outside the
// program, typically by the API client's notifier.
type NotifyMsg struct {
	Text string
}

// toasts is a short stack of transient messages, newest last.
type toasts struct {
	items  []toast
	nextID int
	ttl    time.Duration
}

func newToasts(ttl time.Duration) toasts {
	return toasts{ttl: ttl}
}

// Push adds a toast and returns the command that expires it.
func (t *toasts) Push(level toastLevel, text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	t.nextID++
	id := t.nextID
	t.items = append(t.items, toast{id: id, level: level, text: text})
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}

	return tea.Tick(t.ttl, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// Remove drops the toast with id, if still shown.
func (t *toasts) Remove(id int) {
	for i, item := range t.items {
		if item.id == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

func (t toasts) Len() int {
	return len(t.items)
}

func (t toasts) View(width int) string {
	if len(t.items) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(t.items))
	for _, item := range t.items {
		style := styles.InfoToastStyle
		if item.level == toastError {
			style = styles.ErrorToastStyle
		}
		if width > 4 {
			style = style.MaxWidth(width)
		}
		rendered = append(rendered, style.Render(item.text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}
