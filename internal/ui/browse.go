package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/layerscope/internal/fstree"
)

// renderMain stacks the header, the active view and the footer.
func (m Model) renderMain() string {
	var body string
	switch m.currentView {
	case ViewCompare:
		body = m.renderCompare()
	case ViewLogs:
		body = m.renderLogs()
	case ViewBuild:
		body = m.renderBuild()
	default:
		body = m.renderBrowse()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTaskLine(),
		body,
		m.renderPrompt(),
		m.renderCommandBar(),
	)
}

// Layout arithmetic. Every pane has a one-cell border and a title row.

func (m Model) compact() bool {
	return m.width < LayoutCompactWidth
}

func (m Model) bodyHeight() int {
	return max(m.height-4, 6)
}

func (m Model) paneBodyHeight() int {
	return max(m.bodyHeight()-3, 1)
}

func (m Model) imagesPaneHeight() int {
	return m.bodyHeight() / 2
}

func (m Model) listHeight() int {
	return max(m.imagesPaneHeight()-3, 1)
}

func (m Model) sidebarWidth() int {
	return min(LayoutSidebarWidth, max(m.width/3, 16))
}

func (m Model) treeWidth() int {
	rest := m.width - m.sidebarWidth()
	if m.compact() {
		return rest
	}
	return rest * 2 / 5
}

func (m Model) contentWidth() int {
	return m.width - m.sidebarWidth() - m.treeWidth()
}

// resize applies the window size to every viewport and editor.
func (m *Model) resize() {
	m.content.Width = max(m.contentWidth()-2, 1)
	m.content.Height = m.paneBodyHeight()

	full := max(m.width-2, 1)
	m.compareView.Width = full
	m.compareView.Height = m.paneBodyHeight()
	m.logView.Width = full
	m.logView.Height = m.paneBodyHeight()

	editorWidth := m.width * 3 / 5
	m.editor.SetWidth(max(editorWidth-2, 10))
	m.editor.SetHeight(m.paneBodyHeight())
	m.buildView.Width = max(m.width-editorWidth-2, 1)
	m.buildView.Height = m.paneBodyHeight()

	m.input.Width = max(m.width-20, 10)

	m.contentKey, m.compareKey = "", ""
	m.updateContent()
	m.updateCompare()
	m.updateLogView()
	m.updateBuildView()
}

// renderPane draws a bordered pane with a title row above lines. Lines
// beyond the pane height are dropped.
func (m Model) renderPane(title string, lines []string, width, height int, focused bool) string {
	styles := m.theme.Styles()
	innerWidth := max(width-2, 1)
	innerHeight := max(height-2, 1)

	body := make([]string, 0, innerHeight)
	body = append(body, styles.Title.Render(truncate(title, innerWidth)))
	for _, line := range lines {
		if len(body) == innerHeight {
			break
		}
		body = append(body, line)
	}
	return styles.PaneStyle(focused).
		Width(innerWidth).
		Height(innerHeight).
		MaxHeight(height).
		Render(strings.Join(body, "\n"))
}

func (m Model) renderBrowse() string {
	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.renderImages(),
		m.renderLayers(),
	)
	columns := []string{sidebar, m.renderTree()}
	if !m.compact() {
		columns = append(columns, m.renderContent())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// listLine renders one selectable row, padded so the selection bar spans
// the pane.
func (m Model) listLine(text string, width int, selected, focused bool) string {
	styles := m.theme.Styles()
	text = padRight(cut(text, width), width)
	switch {
	case selected && focused:
		return styles.Selected.Render(text)
	case selected:
		return styles.AccentText.Render(text)
	default:
		return styles.Text.Render(text)
	}
}

func (m Model) renderImages() string {
	styles := m.theme.Styles()
	width := m.sidebarWidth()
	inner := width - 2
	height := m.imagesPaneHeight()
	focused := m.focus == PaneImages
	images := m.snapshot.Images

	var lines []string
	switch {
	case len(images) == 0 && m.snapshot.ImagesErr != nil:
		lines = []string{styles.DangerText.Render(truncate("Backend unavailable", inner))}
	case len(images) == 0:
		lines = []string{styles.MutedText.Render("No images")}
	default:
		visible := m.listHeight()
		start := window(m.imageCursor, visible, len(images))
		for i := start; i < len(images) && i < start+visible; i++ {
			img := images[i]
			marker := "  "
			if img.ID == m.lastImage {
				marker = "● "
			}
			size := img.Size
			room := inner - lipgloss.Width(marker) - len(size)
			text := marker + padRight(truncate(img.Reference(), max(room-1, 4)), room) + size
			lines = append(lines, m.listLine(text, inner, i == m.imageCursor, focused))
		}
	}
	return m.renderPane(fmt.Sprintf("Images (%d)", len(images)), lines, width, height, focused)
}

func (m Model) renderLayers() string {
	styles := m.theme.Styles()
	width := m.sidebarWidth()
	inner := width - 2
	height := m.bodyHeight() - m.imagesPaneHeight()
	focused := m.focus == PaneLayers
	snap := m.snapshot

	title := "Layers"
	if snap.Comparison.Active {
		title = "Layers (select two)"
	}

	var lines []string
	if snap.Image == nil {
		lines = []string{styles.MutedText.Render("Select an image")}
		return m.renderPane(title, lines, width, height, focused)
	}

	order := make(map[string]int, len(snap.Comparison.Selected))
	for i, id := range snap.Comparison.Selected {
		order[id] = i + 1
	}

	layers := snap.Image.Layers
	visible := max(height-3, 1)
	start := window(m.layerCursor, visible, len(layers))
	for i := start; i < len(layers) && i < start+visible; i++ {
		layer := layers[i]
		marker := "  "
		switch {
		case order[layer.ID] > 0:
			marker = fmt.Sprintf("%d ", order[layer.ID])
		case layer.ID == snap.CurrentLayer && !snap.Comparison.Active:
			marker = "▶ "
		}
		label := layer.Command
		if label == "" {
			label = layerLabel(layer.ID, layer.Name)
		}
		size := layer.Size
		head := fmt.Sprintf("%s%2d ", marker, i)
		room := inner - lipgloss.Width(head) - len(size)
		text := head + padRight(truncate(label, max(room-1, 4)), room) + size
		lines = append(lines, m.listLine(text, inner, i == m.layerCursor, focused))
	}
	return m.renderPane(fmt.Sprintf("%s (%d)", title, len(layers)), lines, width, height, focused)
}

func (m Model) renderTree() string {
	if m.inputMode == inputFind {
		return m.renderFindResults()
	}

	styles := m.theme.Styles()
	width := m.treeWidth()
	inner := width - 2
	focused := m.focus == PaneTree
	snap := m.snapshot

	pending := make(map[string]bool, len(snap.Pending))
	for _, p := range snap.Pending {
		pending[p] = true
	}

	title := "Files"
	if m.filter != "" {
		title = fmt.Sprintf("Files matching %q", m.filter)
	}

	var lines []string
	switch {
	case snap.CurrentLayer == "":
		lines = []string{styles.MutedText.Render("Select a layer")}
	case len(m.rows) == 0 && m.filter != "":
		lines = []string{styles.MutedText.Render("No matches")}
	case len(m.rows) == 0:
		lines = []string{styles.MutedText.Render("No files")}
	default:
		files, dirs := fstree.Count(m.session.Tree(""))
		title = fmt.Sprintf("%s (%d files, %d dirs)", title, files, dirs)

		visible := m.paneBodyHeight()
		start := window(m.treeCursor, visible, len(m.rows))
		for i := start; i < len(m.rows) && i < start+visible; i++ {
			lines = append(lines, m.treeLine(m.rows[i], inner, pending, i == m.treeCursor, focused))
		}
	}
	return m.renderPane(title, lines, width, m.bodyHeight(), focused)
}

func (m Model) treeLine(row fstree.Row, width int, pending map[string]bool, selected, focused bool) string {
	n := row.Node
	icon := "  "
	suffix := ""
	switch {
	case n.IsDir() && n.Entry != nil && pending[n.Entry.Path]:
		icon = "⟳ "
	case n.NeedsLoading():
		icon = "▸ "
		suffix = " …"
	case n.IsDir() && n.Expanded:
		icon = "▾ "
	case n.IsDir():
		icon = "▸ "
	}

	size := ""
	if !n.IsDir() && n.Entry != nil {
		if b, ok := n.Entry.Bytes(); ok {
			size = humanize.IBytes(b)
		}
	}

	name := n.Name
	if n.IsDir() {
		name += "/"
	}
	head := strings.Repeat("  ", row.Depth) + icon
	room := width - lipgloss.Width(head) - len(size)
	text := head + padRight(truncate(name, max(room-1-len(suffix), 4))+suffix, room) + size

	if n.Entry != nil && n.Entry.Path == m.snapshot.SelectedFile && !selected {
		return m.theme.Styles().InfoText.Render(padRight(cut(text, width), width))
	}
	return m.listLine(text, width, selected, focused)
}

func (m Model) renderFindResults() string {
	styles := m.theme.Styles()
	width := m.treeWidth()
	inner := width - 2

	var lines []string
	if len(m.findResults) == 0 {
		lines = []string{styles.MutedText.Render("Type to search file names")}
	}
	visible := m.paneBodyHeight()
	start := window(m.findCursor, visible, len(m.findResults))
	for i := start; i < len(m.findResults) && i < start+visible; i++ {
		match := m.findResults[i]
		lines = append(lines, m.listLine(truncateMiddle(match.Node.Path, inner), inner, i == m.findCursor, true))
	}
	return m.renderPane(fmt.Sprintf("Find (%d)", len(m.findResults)), lines, width, m.bodyHeight(), true)
}

func (m Model) renderContent() string {
	title := "Content"
	if path := m.snapshot.SelectedFile; path != "" {
		title = truncateMiddle(m.displayPath(path), m.contentWidth()-4)
	}
	return m.renderPane(title, []string{m.content.View()}, m.contentWidth(), m.bodyHeight(), m.focus == PaneContent)
}

// displayPath maps a backend path to its in-image path.
func (m Model) displayPath(raw string) string {
	norm := fstree.DefaultNormalizer()
	if m.config != nil {
		norm = m.config.Normalizer()
	}
	if logical, ok := norm.Logical(raw); ok {
		return logical
	}
	return raw
}

// updateContent re-renders the file content viewport when the selected
// file, its content or the theme changed.
func (m *Model) updateContent() {
	snap := m.snapshot
	key := fmt.Sprintf("%s|%t|%d|%s", snap.SelectedFile, snap.LoadingFile, len(snap.FileContent), m.theme.Name)
	if key == m.contentKey {
		return
	}
	m.contentKey = key

	styles := m.theme.Styles()
	switch {
	case snap.SelectedFile == "":
		m.content.SetContent(styles.MutedText.Render("Select a file to view its content"))
	case snap.LoadingFile:
		m.content.SetContent(styles.MutedText.Render("Loading " + m.displayPath(snap.SelectedFile) + "..."))
	default:
		m.content.SetContent(highlight(snap.SelectedFile, snap.FileContent, m.theme.Chroma))
	}
}
