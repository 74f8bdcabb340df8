package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/five82/layerscope/internal/logtail"
)

func (m Model) renderLogs() string {
	title := "Log"
	if path := m.logPath(); path != "" {
		title = "Log " + truncateMiddle(path, m.width/2)
	}
	return m.renderPane(title, []string{m.logView.View()}, m.width, m.bodyHeight(), true)
}

// updateLogView re-renders the log viewport, following the tail when the
// view was already scrolled to the bottom.
func (m *Model) updateLogView() {
	styles := m.theme.Styles()
	follow := m.logView.AtBottom() || m.logView.TotalLineCount() == 0

	var b strings.Builder
	switch {
	case m.logErr != nil:
		b.WriteString(styles.DangerText.Render("Read log: " + m.logErr.Error()))
	case m.logPath() == "":
		b.WriteString(styles.MutedText.Render("Logging to a file is not configured"))
	default:
		entries := logtail.Filter(m.logEntries, m.logLevel)
		if len(entries) == 0 {
			b.WriteString(styles.MutedText.Render(fmt.Sprintf("No %s or higher entries yet", m.logLevel.CapitalString())))
		}
		for i, e := range entries {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(m.logLine(e))
		}
	}

	m.logView.SetContent(b.String())
	if follow {
		m.logView.GotoBottom()
	}
}

func (m Model) logLine(e logtail.Entry) string {
	styles := m.theme.Styles()
	if !e.Structured {
		return styles.Text.Render(e.Raw)
	}

	parts := make([]string, 0, 4+len(e.Fields))
	if !e.Time.IsZero() {
		parts = append(parts, styles.FaintText.Render(e.Time.Format("15:04:05")))
	}
	parts = append(parts, levelStyle(styles, e.Level).Render(fmt.Sprintf("%-5s", e.Level.CapitalString())))
	if e.Logger != "" {
		parts = append(parts, styles.AccentText.Render(e.Logger+":"))
	}
	parts = append(parts, styles.Text.Render(e.Message))
	for _, f := range e.Fields {
		parts = append(parts, styles.MutedText.Render(f.Key+"=")+styles.InfoText.Render(f.Value))
	}
	return strings.Join(parts, " ")
}

func levelStyle(styles Styles, level zapcore.Level) lipgloss.Style {
	switch {
	case level >= zapcore.ErrorLevel:
		return styles.DangerText
	case level == zapcore.WarnLevel:
		return styles.WarningText
	case level == zapcore.DebugLevel:
		return styles.FaintText
	default:
		return styles.InfoText
	}
}
