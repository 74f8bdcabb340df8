package ui

import (
	"context"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap/zapcore"

	"github.com/five82/layerscope/internal/fstree"
	"github.com/five82/layerscope/internal/prefs"
)

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}
	if m.editing {
		return m.handleEditorKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		m.savePrefs(func(p *prefs.Prefs) { p.Theme = name })
		m.contentKey, m.compareKey = "", ""
		m.updateContent()
		m.updateCompare()
		m.updateLogView()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewBrowse
		m.setStatus("", false)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.runOp("refresh images", func(ctx context.Context) error {
			_, err := m.session.ListImages(ctx)
			return err
		})

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		m.logGen++
		return m, tea.Batch(readLogsCmd(m.logPath()), logTickCmd(m.logGen))

	case key.Matches(msg, m.keys.ViewBuild):
		m.currentView = ViewBuild
		if m.snapshot.BuildFile == nil {
			cmd := m.openInput(inputBuildPath, "build file: ", "Dockerfile")
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleCompare):
		m.session.SetComparisonMode(!m.snapshot.Comparison.Active)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.RunCompare):
		m.setStatus("", false)
		return m, m.runOp("compare", m.session.Compare)
	}

	switch m.currentView {
	case ViewCompare:
		return m.handleCompareKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	case ViewBuild:
		return m.handleBuildKey(msg)
	default:
		return m.handleBrowseKey(msg)
	}
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Tab):
		m.cycleFocus(1)
		return m, nil
	case key.Matches(msg, m.keys.ShiftTab):
		m.cycleFocus(-1)
		return m, nil
	case key.Matches(msg, m.keys.Filter):
		m.filterBefore = m.filter
		cmd := m.openInput(inputFilter, "/", m.filter)
		return m, cmd
	case key.Matches(msg, m.keys.Find):
		m.findResults = nil
		m.findCursor = 0
		cmd := m.openInput(inputFind, "find: ", "")
		return m, cmd
	}

	switch m.focus {
	case PaneImages:
		return m.handleImagesKey(msg)
	case PaneLayers:
		return m.handleLayersKey(msg)
	case PaneTree:
		return m.handleTreeKey(msg)
	default:
		return m.handleContentKey(msg)
	}
}

// cycleFocus moves focus by delta panes. The content pane is skipped when
// the terminal is too narrow to show it.
func (m *Model) cycleFocus(delta int) {
	n := int(paneCount)
	if m.compact() {
		n--
	}
	m.focus = Pane((int(m.focus) + delta + n) % n)
}

// moveCursor applies the shared navigation keys to a list cursor.
func (m Model) moveCursor(msg tea.KeyMsg, cursor, total, page int) (int, bool) {
	if page < 1 {
		page = 1
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		cursor--
	case key.Matches(msg, m.keys.Down):
		cursor++
	case key.Matches(msg, m.keys.Top):
		cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		cursor = total - 1
	case key.Matches(msg, m.keys.PageUp):
		cursor -= page
	case key.Matches(msg, m.keys.PageDown):
		cursor += page
	default:
		return cursor, false
	}
	return clamp(cursor, 0, total-1), true
}

func (m Model) handleImagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	images := m.snapshot.Images
	if cursor, ok := m.moveCursor(msg, m.imageCursor, len(images), m.listHeight()); ok {
		m.imageCursor = cursor
		return m, nil
	}
	if !key.Matches(msg, m.keys.Select) || len(images) == 0 {
		return m, nil
	}

	id := images[m.imageCursor].ID
	m.lastImage = id
	m.savePrefs(func(p *prefs.Prefs) { p.LastImage = id })
	m.focus = PaneLayers
	m.filter = ""
	return m, m.runOp("select image", func(ctx context.Context) error {
		return m.session.SelectImage(ctx, id)
	})
}

func (m Model) handleLayersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snapshot.Image == nil {
		return m, nil
	}
	layers := m.snapshot.Image.Layers
	if cursor, ok := m.moveCursor(msg, m.layerCursor, len(layers), m.listHeight()); ok {
		m.layerCursor = cursor
		return m, nil
	}
	if !key.Matches(msg, m.keys.Select) || len(layers) == 0 {
		return m, nil
	}

	id := layers[m.layerCursor].ID
	if !m.snapshot.Comparison.Active {
		m.focus = PaneTree
	}
	return m, m.runOp("select layer", func(ctx context.Context) error {
		return m.session.SelectLayer(ctx, id)
	})
}

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cursor, ok := m.moveCursor(msg, m.treeCursor, len(m.rows), m.paneBodyHeight()); ok {
		m.treeCursor = cursor
		return m, nil
	}
	if len(m.rows) == 0 {
		return m, nil
	}
	node := m.rows[m.treeCursor].Node

	switch {
	case key.Matches(msg, m.keys.Select):
		if node.IsDir() {
			cmd := m.openDirectory(node, !node.Expanded)
			return m, cmd
		}
		cmd := m.openFile(node)
		return m, cmd

	case key.Matches(msg, m.keys.Expand):
		if node.IsDir() && !node.Expanded {
			cmd := m.openDirectory(node, true)
			return m, cmd
		}
		return m, nil

	case key.Matches(msg, m.keys.Collapse):
		if node.IsDir() && node.Expanded {
			m.session.SetExpanded(node.Path, false)
			m.refresh()
			return m, nil
		}
		// Jump to the parent directory.
		depth := m.rows[m.treeCursor].Depth
		for i := m.treeCursor - 1; i >= 0; i-- {
			if m.rows[i].Depth < depth {
				m.treeCursor = i
				break
			}
		}
		return m, nil
	}
	return m, nil
}

// openDirectory expands or collapses a directory, extracting its children
// first when the backend has not resolved them yet.
func (m *Model) openDirectory(node *fstree.Node, expand bool) tea.Cmd {
	if node.NeedsLoading() {
		raw := node.Entry.Path
		return m.runOp("extract directory", func(ctx context.Context) error {
			return m.session.ExtractDirectory(ctx, raw)
		})
	}
	m.session.SetExpanded(node.Path, expand)
	m.refresh()
	return nil
}

func (m *Model) openFile(node *fstree.Node) tea.Cmd {
	if node.Entry == nil {
		return nil
	}
	entry := *node.Entry
	m.content.GotoTop()
	return m.runOp("read file", func(ctx context.Context) error {
		return m.session.LoadFileContent(ctx, entry)
	})
}

func (m Model) handleContentKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Top):
		m.content.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.content.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m Model) handleCompareKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleUnchange):
		m.showUnchanged = !m.showUnchanged
		m.updateCompare()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.compareView.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.compareView.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.compareView, cmd = m.compareView.Update(msg)
	return m, cmd
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.CycleLevel):
		m.logLevel = nextLevel(m.logLevel)
		m.updateLogView()
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.logView.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logView.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func nextLevel(level zapcore.Level) zapcore.Level {
	if level >= zapcore.ErrorLevel {
		return zapcore.DebugLevel
	}
	return level + 1
}

func (m Model) handleBuildKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	bf := m.snapshot.BuildFile
	switch {
	case key.Matches(msg, m.keys.Open):
		value := "Dockerfile"
		if bf != nil && bf.Path != "" {
			value = bf.Path
		}
		cmd := m.openInput(inputBuildPath, "build file: ", value)
		return m, cmd

	case key.Matches(msg, m.keys.Edit):
		if bf == nil {
			return m, nil
		}
		m.editing = true
		cmd := m.editor.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Save):
		return m, m.saveBuildFile()
	}
	var cmd tea.Cmd
	m.buildView, cmd = m.buildView.Update(msg)
	return m, cmd
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.editing = false
		m.editor.Blur()
		m.applyEdits()
		return m, nil
	case "ctrl+s":
		if !m.applyEdits() {
			return m, nil
		}
		return m, m.saveBuildFile()
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// applyEdits hands the editor text to the session for re-analysis.
func (m *Model) applyEdits() bool {
	bf := m.snapshot.BuildFile
	if bf == nil {
		return false
	}
	if err := m.session.SetBuildFile(bf.Name, m.editor.Value()); err != nil {
		m.setStatus("Build file: "+err.Error(), true)
		return false
	}
	m.refresh()
	return true
}

func (m Model) saveBuildFile() tea.Cmd {
	return m.runOp("save build file", func(context.Context) error {
		return m.session.SaveBuildFile()
	})
}

// openInput shows the prompt for mode, seeded with value.
func (m *Model) openInput(mode inputMode, prompt, value string) tea.Cmd {
	m.inputMode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return tea.Batch(m.input.Focus(), textinput.Blink)
}

func (m *Model) closeInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.inputMode
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		if mode == inputFilter {
			m.filter = m.filterBefore
			m.refreshRows()
		}
		m.findResults = nil
		m.closeInput()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.closeInput()
		switch mode {
		case inputFilter:
			m.filter = value
			m.treeCursor = 0
			m.refreshRows()
			m.focus = PaneTree
			return m, nil
		case inputFind:
			cmd := m.revealMatch()
			return m, cmd
		case inputBuildPath:
			if value == "" {
				return m, nil
			}
			return m, m.runOp("open build file", func(context.Context) error {
				return m.session.LoadBuildFile(value)
			})
		}
		return m, nil

	case "up", "ctrl+k":
		if mode == inputFind {
			m.findCursor = clamp(m.findCursor-1, 0, len(m.findResults)-1)
			return m, nil
		}
	case "down", "ctrl+j":
		if mode == inputFind {
			m.findCursor = clamp(m.findCursor+1, 0, len(m.findResults)-1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	switch mode {
	case inputFilter:
		m.filter = strings.TrimSpace(m.input.Value())
		m.treeCursor = 0
		m.refreshRows()
	case inputFind:
		m.findResults = m.session.FindFiles(m.input.Value(), FindResultLimit)
		m.findCursor = 0
	}
	return m, cmd
}

// revealMatch expands the chosen fuzzy match's ancestors, clears the
// filter and opens the file.
func (m *Model) revealMatch() tea.Cmd {
	if len(m.findResults) == 0 {
		return nil
	}
	node := m.findResults[clamp(m.findCursor, 0, len(m.findResults)-1)].Node
	m.findResults = nil

	for _, dir := range ancestors(node.Path) {
		m.session.SetExpanded(dir, true)
	}
	m.filter = ""
	m.reveal = node.Path
	m.focus = PaneTree
	m.refresh()
	return m.openFile(node)
}

// ancestors lists the directories above a logical path, outermost first.
func ancestors(logical string) []string {
	segs := fstree.Segments(logical)
	if len(segs) < 2 {
		return nil
	}
	dirs := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		dirs = append(dirs, "/"+path.Join(segs[:i]...))
	}
	return dirs
}
