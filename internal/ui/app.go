package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/layerscope/internal/compare"
	"github.com/five82/layerscope/internal/config"
	"github.com/five82/layerscope/internal/fstree"
	"github.com/five82/layerscope/internal/logging"
	"github.com/five82/layerscope/internal/logtail"
	"github.com/five82/layerscope/internal/prefs"
	"github.com/five82/layerscope/internal/session"
)

// View represents the current active view.
type View int

const (
	ViewBrowse View = iota
	ViewCompare
	ViewLogs
	ViewBuild
)

// Pane is a focusable pane of the browse view.
type Pane int

const (
	PaneImages Pane = iota
	PaneLayers
	PaneTree
	PaneContent
	paneCount
)

// inputMode says which prompt owns the text input.
type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputFind
	inputBuildPath
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   *session.Session
	Config    *config.Config
	ThemeName string
	// LastImage is preselected in the image list when it is present.
	LastImage string
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	session   *session.Session
	config    *config.Config
	prefsPath string
	lastImage string
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	focus       Pane
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot session.Snapshot
	rows     []fstree.Row

	// Browse state
	imageCursor int
	layerCursor int
	treeCursor  int
	shownLayer  string
	preselected bool
	reveal      string

	// Prompt state
	input        textinput.Model
	inputMode    inputMode
	filter       string
	filterBefore string
	findResults  []fstree.Match
	findCursor   int

	// Content state
	content    viewport.Model
	contentKey string

	// Comparison state
	compareView   viewport.Model
	compareKey    string
	showUnchanged bool

	// Log state
	logView    viewport.Model
	logEntries []logtail.Entry
	logLevel   zapcore.Level
	logErr     error
	logGen     int

	// Build file state
	editor    textarea.Model
	editing   bool
	buildView viewport.Model

	// Activity
	spinner   spinner.Model
	progress  progress.Model
	status    string
	statusErr bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	input := textinput.New()
	input.CharLimit = 256

	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.CharLimit = 0
	editor.MaxHeight = 0

	m := Model{
		ctx:         ctx,
		session:     opts.Session,
		config:      opts.Config,
		prefsPath:   prefsPath,
		lastImage:   opts.LastImage,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewBrowse,
		input:       input,
		logLevel:    zapcore.InfoLevel,
		editor:      editor,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		content:     viewport.New(0, 0),
		compareView: viewport.New(0, 0),
		logView:     viewport.New(0, 0),
		buildView:   viewport.New(0, 0),
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForChange(m.ctx, m.session),
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case changeMsg:
		m.refresh()
		return m, waitForChange(m.ctx, m.session)

	case opDoneMsg:
		m.handleOpDone(msg)
		return m, nil

	case logsMsg:
		m.logEntries = msg.entries
		m.logErr = msg.err
		m.updateLogView()
		return m, nil

	case logTickMsg:
		if msg.gen != m.logGen || m.currentView != ViewLogs {
			return m, nil
		}
		return m, tea.Batch(readLogsCmd(m.logPath()), logTickCmd(m.logGen))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// refresh re-reads the session snapshot and re-derives every view.
func (m *Model) refresh() {
	if m.session == nil {
		return
	}
	m.snapshot = m.session.Snapshot()
	snap := m.snapshot

	if !m.preselected && len(snap.Images) > 0 {
		m.preselected = true
		for i, img := range snap.Images {
			if m.lastImage != "" && (img.ID == m.lastImage || img.Reference() == m.lastImage) {
				m.imageCursor = i
				break
			}
		}
	}
	m.imageCursor = clamp(m.imageCursor, 0, len(snap.Images)-1)

	if snap.CurrentLayer != m.shownLayer {
		m.shownLayer = snap.CurrentLayer
		m.treeCursor = 0
		if snap.Image != nil {
			for i, layer := range snap.Image.Layers {
				if layer.ID == snap.CurrentLayer {
					m.layerCursor = i
				}
			}
		}
	}
	layers := 0
	if snap.Image != nil {
		layers = len(snap.Image.Layers)
	}
	m.layerCursor = clamp(m.layerCursor, 0, layers-1)

	m.refreshRows()
	if m.inputMode == inputFind {
		m.findResults = m.session.FindFiles(m.input.Value(), FindResultLimit)
		m.findCursor = clamp(m.findCursor, 0, len(m.findResults)-1)
	}

	if bf := snap.BuildFile; bf != nil && !m.editing && m.editor.Value() != bf.Content {
		m.editor.SetValue(bf.Content)
	}

	m.updateContent()
	m.updateCompare()
	m.updateBuildView()
}

// refreshRows rebuilds the visible tree rows for the current filter.
func (m *Model) refreshRows() {
	m.rows = fstree.Visible(m.session.Tree(m.filter))
	if m.reveal != "" {
		for i, row := range m.rows {
			if row.Node.Path == m.reveal {
				m.treeCursor = i
				m.reveal = ""
				break
			}
		}
	}
	m.treeCursor = clamp(m.treeCursor, 0, len(m.rows)-1)
}

// handleOpDone records the outcome of a session operation. Validation
// errors are shown as hints; backend failures are already reflected in
// the snapshot and are repeated in the status line.
func (m *Model) handleOpDone(msg opDoneMsg) {
	m.refresh()
	if msg.err == nil {
		m.setStatus("", false)
		switch msg.op {
		case "compare":
			m.currentView = ViewCompare
			m.compareView.GotoTop()
		case "save build file":
			m.setStatus("Build file saved", false)
		}
		return
	}

	switch {
	case errors.Is(msg.err, context.Canceled):
		return
	case errors.Is(msg.err, compare.ErrSelectionIncomplete):
		m.setStatus("Select exactly two layers to compare", true)
	case errors.Is(msg.err, compare.ErrNotActive):
		m.setStatus("Press c to enter comparison mode", true)
	case errors.Is(msg.err, session.ErrExtractionPending):
		m.setStatus("Directory is already being extracted", false)
	default:
		m.setStatus(fmt.Sprintf("%s failed: %v", msg.op, msg.err), true)
	}
	logging.L().Debug("ui operation failed", zap.String("op", msg.op), zap.Error(msg.err))
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// savePrefs persists a preference change. Failures only log: the UI keeps
// the in-memory choice either way.
func (m *Model) savePrefs(fn func(*prefs.Prefs)) {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Update(m.prefsPath, fn); err != nil {
		logging.L().Warn("save preferences failed", zap.String("path", m.prefsPath), zap.Error(err))
	}
}

func (m Model) logPath() string {
	if m.config == nil {
		return ""
	}
	return m.config.LogPath
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
