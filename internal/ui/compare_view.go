package ui

import (
	"fmt"
	"strings"

	"github.com/five82/layerscope/internal/report"
)

func (m Model) renderCompare() string {
	cmp := m.snapshot.Comparison
	title := "Comparison"
	if cmp.Result != nil {
		title = fmt.Sprintf("Comparing %s → %s", layerLabel(cmp.Pair[0], ""), layerLabel(cmp.Pair[1], ""))
	}
	return m.renderPane(title, []string{m.compareView.View()}, m.width, m.bodyHeight(), true)
}

// updateCompare re-renders the comparison viewport when the result,
// the unchanged toggle or the theme changed.
func (m *Model) updateCompare() {
	cmp := m.snapshot.Comparison
	key := fmt.Sprintf("%v|%t|%v|%t|%s|%v", cmp.Pair, cmp.Running, cmp.Err, m.showUnchanged, m.theme.Name, cmp.Selected)
	if cmp.Result != nil {
		key += fmt.Sprintf("|%d/%d/%d/%d", len(cmp.Result.Added), len(cmp.Result.Removed), len(cmp.Result.Modified), len(cmp.Result.Unchanged))
	}
	if key == m.compareKey {
		return
	}
	m.compareKey = key
	m.compareView.SetContent(m.compareText())
}

func (m Model) compareText() string {
	styles := m.theme.Styles()
	cmp := m.snapshot.Comparison

	var b strings.Builder
	switch {
	case cmp.Running:
		b.WriteString(styles.WarningText.Render("Comparing layers..."))
		b.WriteString("\n\n")
	case cmp.Err != nil:
		b.WriteString(styles.DangerText.Render(cmp.Err.Error()))
		b.WriteString("\n\n")
	}

	if cmp.Result == nil {
		if !cmp.Active {
			b.WriteString(styles.MutedText.Render("Press c to enter comparison mode, select two layers with enter, then press x."))
			return b.String()
		}
		fmt.Fprintf(&b, "%s %s", styles.MutedText.Render("Selected:"), styles.Text.Render(strings.Join(cmp.Selected, ", ")))
		return b.String()
	}

	image := ""
	if m.snapshot.Image != nil {
		image = m.snapshot.Image.Name
	}
	c := report.NewComparison(image, cmp.Pair[0], cmp.Pair[1], cmp.Result, m.showUnchanged)

	fmt.Fprintf(&b, "%s  %s  %s  %s\n\n",
		styles.DiffStyle("added").Render(fmt.Sprintf("+%d added", c.Summary.Added)),
		styles.DiffStyle("removed").Render(fmt.Sprintf("-%d removed", c.Summary.Removed)),
		styles.DiffStyle("modified").Render(fmt.Sprintf("~%d modified", c.Summary.Modified)),
		styles.DiffStyle("unchanged").Render(fmt.Sprintf("=%d unchanged", c.Summary.Unchanged)),
	)

	section := func(category, marker string, paths []string) {
		if len(paths) == 0 {
			return
		}
		style := styles.DiffStyle(category)
		b.WriteString(styles.Title.Render(strings.ToUpper(category[:1])+category[1:]) + "\n")
		for _, p := range paths {
			b.WriteString(style.Render(marker+" "+m.displayPath(p)) + "\n")
		}
		b.WriteString("\n")
	}
	section("added", "+", c.Added)
	section("removed", "-", c.Removed)
	section("modified", "~", c.Modified)
	section("unchanged", "=", c.Unchanged)

	if c.Summary.Added+c.Summary.Removed+c.Summary.Modified == 0 {
		b.WriteString(styles.MutedText.Render("No changes between these layers.") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
