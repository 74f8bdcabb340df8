package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/layerscope/internal/logtail"
	"github.com/five82/layerscope/internal/session"
)

// changeMsg reports that the session state changed.
type changeMsg struct{}

// opDoneMsg carries the outcome of a session operation run off the
// update loop.
type opDoneMsg struct {
	op  string
	err error
}

// logsMsg carries a fresh read of the log file.
type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// logTickMsg triggers a log re-read. Ticks from an older log view
// generation are dropped.
type logTickMsg struct {
	gen int
}

// waitForChange blocks until the session signals a change.
func waitForChange(ctx context.Context, sess *session.Session) tea.Cmd {
	if sess == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-sess.Changes():
			return changeMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// runOp runs fn with the UI context and reports its result.
func (m Model) runOp(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogBufferLimit)
		return logsMsg{entries: logtail.ParseLines(lines), err: err}
	}
}

func logTickCmd(gen int) tea.Cmd {
	return tea.Tick(LogRefreshInterval, func(time.Time) tea.Msg {
		return logTickMsg{gen: gen}
	})
}
