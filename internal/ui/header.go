package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/layerscope/internal/session"
)

// renderHeader renders the status bar: backend health, resident image,
// current layer, phase and cache usage.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("layerscope", styles.Logo)}

	switch {
	case snap.IsOffline():
		parts = append(parts, bg.Render(fmt.Sprintf("● OFFLINE (%d failures)", snap.ConsecutiveFailures), styles.DangerText))
	case snap.ImagesUpdated.IsZero() && snap.ImagesErr == nil:
		parts = append(parts, bg.Render("● Connecting...", styles.WarningText))
	case snap.ImagesErr != nil:
		parts = append(parts, bg.Render("● RETRYING", styles.WarningText))
	default:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if snap.Image != nil {
		name := snap.Image.Name
		if name == "" {
			name = shortID(snap.Image.ID)
		}
		parts = append(parts,
			bg.Render("Image:", styles.MutedText)+bg.Spaces(1)+bg.Render(truncate(name, 40), styles.Text))
	}
	if layer, ok := snap.Layer(); ok {
		parts = append(parts,
			bg.Render("Layer:", styles.MutedText)+bg.Spaces(1)+bg.Render(layerLabel(layer.ID, layer.Name), styles.Text))
	}
	if !compact {
		parts = append(parts, bg.Render(snap.Phase.String(), phaseStyle(styles, snap.Phase)))
		if snap.Cache.Limit > 0 || snap.Cache.Used > 0 {
			style := styles.MutedText
			if snap.Cache.Over() {
				style = styles.WarningText
			}
			parts = append(parts,
				bg.Render("Cache:", styles.MutedText)+bg.Spaces(1)+bg.Render(snap.Cache.String(), style))
		}
	}
	if snap.Comparison.Active {
		parts = append(parts, bg.Render(fmt.Sprintf("COMPARE %d/2", len(snap.Comparison.Selected)), styles.AccentText.Bold(true)))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func phaseStyle(styles Styles, phase session.Phase) lipgloss.Style {
	switch phase {
	case session.PhaseError:
		return styles.DangerText
	case session.PhaseImageLoading, session.PhaseLayerFilesLoading:
		return styles.WarningText
	case session.PhaseLayerFilesReady:
		return styles.SuccessText
	default:
		return styles.MutedText
	}
}

// renderTaskLine renders the live task status: a spinner and progress bar
// while running, the outcome once finished.
func (m Model) renderTaskLine() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	width := m.width - 2

	var line string
	switch {
	case snap.HasTask && snap.Task.Failed():
		line = styles.DangerText.Render("✗ " + truncate(snap.Task.Message+": "+snap.Task.Error, width-2))
	case snap.HasTask && !snap.Task.IsComplete:
		task := snap.Task.Clamped()
		barWidth := clamp(width/3, 10, 40)
		m.progress.Width = barWidth
		label := truncate(task.Message, width-barWidth-10)
		line = m.spinner.View() + " " + styles.Text.Render(label) + "  " +
			m.progress.ViewAs(task.Progress) + " " +
			styles.MutedText.Render(fmt.Sprintf("%3.0f%%", task.Progress*100))
	case snap.HasTask:
		line = styles.SuccessText.Render("✓ ") + styles.Text.Render(truncate(snap.Task.Message, width-2))
	case snap.Err != nil:
		line = styles.DangerText.Render(truncate(snap.Err.Error(), width))
	case snap.ImagesErr != nil:
		line = styles.WarningText.Render(truncate("Backend: "+snap.ImagesErr.Error(), width))
	default:
		line = styles.MutedText.Render("Ready")
	}
	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Render(line)
}

// renderCommandBar renders the command hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewCompare:
		unchanged := "Show unchanged"
		if m.showUnchanged {
			unchanged = "Hide unchanged"
		}
		commands = []cmd{
			{"j/k", "Scroll"},
			{"u", unchanged},
			{"x", "Re-run"},
			{"esc", "Browser"},
		}
	case ViewLogs:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"w", "Level ≥ " + m.logLevel.CapitalString()},
			{"esc", "Browser"},
		}
	case ViewBuild:
		if m.editing {
			commands = []cmd{{"esc", "Done"}, {"ctrl+s", "Save"}}
		} else {
			commands = []cmd{{"o", "Open"}, {"e", "Edit"}, {"ctrl+s", "Save"}, {"esc", "Browser"}}
		}
	default:
		compareLabel := "Compare mode"
		if m.snapshot.Comparison.Active {
			compareLabel = "Exit compare"
		}
		commands = []cmd{
			{"tab", "Pane"},
			{"enter", "Open"},
			{"/", "Filter"},
			{"f", "Find"},
			{"c", compareLabel},
			{"x", "Compare"},
			{"L", "Logs"},
			{"B", "Build file"},
		}
	}
	commands = append(commands, cmd{"?", "More"}, cmd{"q", "Quit"})

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+bg.Render(":", styles.MutedText)+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+bg.Render(":", styles.MutedText)+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderPrompt renders the open text input, or the last status message.
func (m Model) renderPrompt() string {
	styles := m.theme.Styles()
	var line string
	switch {
	case m.inputMode != inputNone:
		line = m.input.View()
	case m.status != "":
		style := styles.InfoText
		if m.statusErr {
			style = styles.DangerText
		}
		line = style.Render(truncate(m.status, m.width-2))
	case m.filter != "" && m.currentView == ViewBrowse:
		line = styles.MutedText.Render("filter: ") + styles.AccentText.Render(m.filter)
	}
	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Render(line)
}

func layerLabel(id, name string) string {
	if name != "" && name != id {
		return truncate(name, 24)
	}
	return shortID(id)
}
