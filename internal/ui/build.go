package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/layerscope/internal/buildfile"
)

func (m Model) renderBuild() string {
	styles := m.theme.Styles()
	bf := m.snapshot.BuildFile
	editorWidth := m.width * 3 / 5

	title := "Build file"
	var editor []string
	if bf == nil {
		editor = []string{styles.MutedText.Render("Press o to open a Dockerfile")}
	} else {
		title = bf.Name
		if bf.Path != "" {
			title = truncateMiddle(bf.Path, editorWidth-16)
		}
		if bf.Dirty {
			title += " [modified]"
		}
		if m.editing {
			title += " (editing)"
		}
		editor = []string{m.editor.View()}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPane(title, editor, editorWidth, m.bodyHeight(), m.editing),
		m.renderPane("Analysis", []string{m.buildView.View()}, m.width-editorWidth, m.bodyHeight(), !m.editing),
	)
}

// updateBuildView renders the analysis of the open build file and the
// reference entry for the instruction under the editor cursor.
func (m *Model) updateBuildView() {
	m.buildView.SetContent(m.analysisText())
}

func (m Model) analysisText() string {
	styles := m.theme.Styles()
	bf := m.snapshot.BuildFile
	if bf == nil {
		return styles.MutedText.Render("No build file open")
	}
	a := bf.Analysis

	var b strings.Builder
	if a.BaseImage != "" {
		fmt.Fprintf(&b, "%s %s\n", styles.MutedText.Render("Base image:"), styles.Text.Render(a.BaseImage))
	}
	fmt.Fprintf(&b, "%s %s\n", styles.MutedText.Render("New layers:"), styles.Text.Render(fmt.Sprint(a.NewLayers)))

	if keywords := a.Keywords(); len(keywords) > 0 {
		counts := make([]string, 0, len(keywords))
		for _, k := range keywords {
			counts = append(counts, fmt.Sprintf("%s×%d", k, a.Counts[k]))
		}
		fmt.Fprintf(&b, "%s %s\n", styles.MutedText.Render("Instructions:"), styles.Text.Render(strings.Join(counts, " ")))
	}

	if cmd, ok := m.instructionAtCursor(); ok {
		b.WriteString("\n" + styles.Title.Render(cmd.Keyword) + "\n")
		b.WriteString(styles.Text.Render(cmd.Description) + "\n")
		b.WriteString(styles.MutedText.Render(cmd.SideEffect) + "\n")
		b.WriteString(styles.FaintText.Render("e.g. "+cmd.Example) + "\n")
	}

	if len(a.Suggestions) > 0 {
		b.WriteString("\n" + styles.Title.Render("Suggestions") + "\n")
		for _, s := range a.Suggestions {
			line := "• " + s.Title
			if s.Line > 0 {
				line = fmt.Sprintf("• L%d %s", s.Line, s.Title)
			}
			b.WriteString(styles.WarningText.Render(line) + "\n")
			if s.Detail != "" {
				b.WriteString(styles.MutedText.Render("  "+s.Detail) + "\n")
			}
		}
	}

	if len(a.Impacts) > 0 {
		b.WriteString("\n" + styles.Title.Render("Layer impact") + "\n")
		for _, imp := range a.Impacts {
			style := styles.MutedText
			if imp.Impact == buildfile.ImpactNewLayer {
				style = styles.AccentText
			}
			fmt.Fprintf(&b, "%s %s %s\n",
				styles.FaintText.Render(fmt.Sprintf("L%-3d", imp.Line)),
				style.Render(fmt.Sprintf("%-10s", imp.Keyword)),
				styles.Text.Render(imp.Description))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// instructionAtCursor looks up the reference entry for the instruction
// that starts at or above the editor cursor.
func (m Model) instructionAtCursor() (buildfile.Command, bool) {
	bf := m.snapshot.BuildFile
	if bf == nil || bf.Doc == nil {
		return buildfile.Command{}, false
	}
	line := m.editor.Line() + 1
	keyword := ""
	for _, inst := range bf.Doc.Instructions {
		if inst.Line > line {
			break
		}
		keyword = inst.Keyword
	}
	if keyword == "" {
		return buildfile.Command{}, false
	}
	return buildfile.Lookup(keyword)
}
