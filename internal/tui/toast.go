package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Severity classifies a toast.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

const defaultToastTTL = 4 * time.Second

// Toast is a short-lived notification shown above the help line.
type Toast struct {
	ID          int
	Title       string
	Description string
	Severity    Severity
}

type toastExpiredMsg struct{ id int }

// notify queues a toast and returns the command that expires it.
func (a *App) notify(sev Severity, title, desc string) tea.Cmd {
	a.nextToast++
	id := a.nextToast
	a.toasts = append(a.toasts, Toast{ID: id, Title: title, Description: desc, Severity: sev})
	if len(a.toasts) > maxToasts {
		a.toasts = a.toasts[len(a.toasts)-maxToasts:]
	}
	ttl := a.toastTTL
	return tea.Tick(ttl, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

const maxToasts = 3

func (a *App) expireToast(id int) {
	for i, t := range a.toasts {
		if t.ID == id {
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return
		}
	}
}

// Toasts returns the visible notifications, oldest first.
func (a *App) Toasts() []Toast {
	return append([]Toast(nil), a.toasts...)
}
