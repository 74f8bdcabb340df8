package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/backend/backendtest"
	"github.com/five82/layerscope/internal/config"
	"github.com/five82/layerscope/internal/fstree"
	"github.com/five82/layerscope/internal/prefs"
	"github.com/five82/layerscope/internal/session"
)

const ns = fstree.DefaultNamespace

func fileEntry(p, size string) backend.Entry {
	return backend.Entry{Name: filepath.Base(p), Type: backend.EntryTypeFile, Path: p, Size: size}
}

func dirEntry(p string, needsLoading bool) backend.Entry {
	e := backend.Entry{Name: filepath.Base(p), Type: backend.EntryTypeDirectory, Path: p, NeedsLoading: needsLoading}
	if needsLoading {
		e.Size = "..."
	}
	return e
}

func newGateway() *backendtest.Gateway {
	gw := backendtest.New()
	gw.Images = []backend.ImageSummary{
		{ID: "img-0", Repository: "base", Tag: "1.0", Size: "5MB"},
		{ID: "img-1", Repository: "app", Tag: "latest", Size: "80MB"},
	}
	gw.Image = &backend.Image{
		ID:   "img-1",
		Name: "app:latest",
		Layers: []backend.Layer{
			{ID: "L0", Command: "ADD rootfs.tar /"},
			{ID: "L1", Command: "COPY . /app"},
			{ID: "L2", Command: "RUN npm run build"},
		},
	}
	gw.LayerExports["L0"] = []backend.Entry{dirEntry(ns+"/etc", false), fileEntry(ns+"/etc/hosts", "200 B")}
	gw.LayerFiles["L0"] = []backend.Entry{dirEntry(ns+"/etc", false), fileEntry(ns+"/etc/hosts", "200 B")}
	gw.LayerFiles["L1"] = []backend.Entry{
		dirEntry(ns+"/app", false),
		fileEntry(ns+"/app/package.json", "1 KB"),
		dirEntry(ns+"/app/node_modules", true),
	}
	gw.LayerFiles["L2"] = []backend.Entry{
		dirEntry(ns+"/app", false),
		dirEntry(ns+"/app/dist", false),
		fileEntry(ns+"/app/dist/main.js", "10 KB"),
	}
	gw.Directories[ns+"/app/node_modules"] = []backend.Entry{
		dirEntry(ns+"/app/node_modules/lodash", false),
		fileEntry(ns+"/app/node_modules/lodash/index.js", "5 KB"),
	}
	gw.Files[ns+"/app/package.json"] = `{"name": "app"}`
	gw.Files[ns+"/app/dist/main.js"] = "console.log(1)"
	gw.Diff = &backend.LayerDiff{Added: []string{"/app/dist/main.js"}, Unchanged: []string{"/etc/hosts"}}
	return gw
}

// newModel returns a sized model whose session already knows the images.
func newModel(t *testing.T, gw *backendtest.Gateway, opts Options) Model {
	t.Helper()
	sess := session.New(gw, session.Options{})
	if _, err := sess.ListImages(context.Background()); err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	opts.Session = sess
	if opts.PrefsPath == "" {
		opts.PrefsPath = filepath.Join(t.TempDir(), "prefs.toml")
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return next.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

// do presses k and completes the session operation it starts.
func do(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(keyMsg(k))
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("key %q started no operation", k)
	}
	done, ok := cmd().(opDoneMsg)
	if !ok {
		t.Fatalf("key %q did not run a session operation", k)
	}
	next, _ = m.Update(done)
	return next.(Model)
}

func rowIndex(t *testing.T, m Model, logical string) int {
	t.Helper()
	for i, row := range m.rows {
		if row.Node.Path == logical {
			return i
		}
	}
	t.Fatalf("row %s not visible", logical)
	return -1
}

// selectLayer picks the image, then the layer at index from the layer list.
func selectLayer(t *testing.T, m Model, index int) Model {
	t.Helper()
	m.imageCursor = 1
	m = do(t, m, "enter")
	for i := 0; i < index; i++ {
		m = press(t, m, "down")
	}
	return do(t, m, "enter")
}

func TestSelectImageLoadsFirstLayerAndRemembersIt(t *testing.T) {
	gw := newGateway()
	m := newModel(t, gw, Options{})
	m.imageCursor = 1

	m = do(t, m, "enter")

	if m.snapshot.CurrentLayer != "L0" {
		t.Fatalf("current layer = %q, want L0", m.snapshot.CurrentLayer)
	}
	if m.focus != PaneLayers {
		t.Fatalf("focus = %v, want layers pane", m.focus)
	}
	if got := gw.Calls(backend.CommandRetagImage); !reflect.DeepEqual(got, []string{"img-1"}) {
		t.Fatalf("retag calls = %v", got)
	}
	p, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.LastImage != "img-1" {
		t.Fatalf("LastImage = %q, want img-1", p.LastImage)
	}

	view := m.View()
	for _, want := range []string{"app:latest", "ADD rootfs.tar", "etc/"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestLastImageIsPreselected(t *testing.T) {
	m := newModel(t, newGateway(), Options{LastImage: "app:latest"})
	if m.imageCursor != 1 {
		t.Fatalf("imageCursor = %d, want 1", m.imageCursor)
	}
}

func TestTreeExtractsDirectoryAndOpensFile(t *testing.T) {
	gw := newGateway()
	m := selectLayer(t, newModel(t, gw, Options{}), 1)
	if m.focus != PaneTree {
		t.Fatalf("focus = %v, want tree pane", m.focus)
	}

	m.treeCursor = rowIndex(t, m, "/app")
	m = press(t, m, "enter")
	if !m.snapshot.Expanded["/app"] {
		t.Fatal("/app was not expanded")
	}

	m.treeCursor = rowIndex(t, m, "/app/node_modules")
	m = do(t, m, "enter")
	if got := gw.Calls(backend.CommandExtractDirectory); !reflect.DeepEqual(got, []string{ns + "/app/node_modules"}) {
		t.Fatalf("extract calls = %v", got)
	}
	rowIndex(t, m, "/app/node_modules/lodash")

	m.treeCursor = rowIndex(t, m, "/app/package.json")
	m = do(t, m, "enter")
	if m.snapshot.SelectedFile != ns+"/app/package.json" {
		t.Fatalf("selected file = %q", m.snapshot.SelectedFile)
	}
	if m.snapshot.FileContent != `{"name": "app"}` {
		t.Fatalf("content = %q", m.snapshot.FileContent)
	}
	if !strings.Contains(m.View(), "/app/package.json") {
		t.Fatal("content pane title does not show the file path")
	}
}

func TestCollapseMovesToParent(t *testing.T) {
	m := selectLayer(t, newModel(t, newGateway(), Options{}), 1)
	m.treeCursor = rowIndex(t, m, "/app")
	m = press(t, m, "l")
	m.treeCursor = rowIndex(t, m, "/app/package.json")

	m = press(t, m, "h")
	if got := m.rows[m.treeCursor].Node.Path; got != "/app" {
		t.Fatalf("cursor on %s, want /app", got)
	}
	m = press(t, m, "h")
	if m.snapshot.Expanded["/app"] {
		t.Fatal("/app still expanded")
	}
}

func TestComparisonFlow(t *testing.T) {
	gw := newGateway()
	m := newModel(t, gw, Options{})
	m.imageCursor = 1
	m = do(t, m, "enter")

	m = press(t, m, "c")
	if !m.snapshot.Comparison.Active {
		t.Fatal("comparison mode not active")
	}
	m = do(t, m, "enter")
	m = press(t, m, "down", "down")
	m = do(t, m, "enter")
	if got := m.snapshot.Comparison.Selected; !reflect.DeepEqual(got, []string{"L0", "L2"}) {
		t.Fatalf("selection = %v", got)
	}

	m = do(t, m, "x")
	if m.currentView != ViewCompare {
		t.Fatalf("view = %v, want comparison", m.currentView)
	}
	if got := gw.Calls(backend.CommandCompareLayers); !reflect.DeepEqual(got, []string{"L0,L2"}) {
		t.Fatalf("compare calls = %v", got)
	}
	view := m.View()
	if !strings.Contains(view, "+ /app/dist/main.js") || strings.Contains(view, "= /etc/hosts") {
		t.Fatalf("comparison view:\n%s", view)
	}

	m = press(t, m, "u")
	if !strings.Contains(m.View(), "= /etc/hosts") {
		t.Fatal("unchanged paths not shown after toggle")
	}
}

func TestCompareNeedsTwoLayers(t *testing.T) {
	gw := newGateway()
	m := newModel(t, gw, Options{})
	m.imageCursor = 1
	m = do(t, m, "enter")
	m = press(t, m, "c")
	m = do(t, m, "enter")

	m = do(t, m, "x")
	if m.currentView != ViewBrowse {
		t.Fatalf("view = %v, want browser", m.currentView)
	}
	if !m.statusErr || !strings.Contains(m.status, "exactly two") {
		t.Fatalf("status = %q", m.status)
	}
	if gw.CallCount(backend.CommandCompareLayers) != 0 {
		t.Fatal("compare reached the backend")
	}
}

func TestFilterNarrowsTree(t *testing.T) {
	m := selectLayer(t, newModel(t, newGateway(), Options{}), 1)

	m = press(t, m, "/", "p", "a", "c", "k")
	if m.filter != "pack" {
		t.Fatalf("filter = %q", m.filter)
	}
	var paths []string
	for _, row := range m.rows {
		paths = append(paths, row.Node.Path)
	}
	if !reflect.DeepEqual(paths, []string{"/app", "/app/package.json"}) {
		t.Fatalf("rows = %v", paths)
	}

	m = press(t, m, "enter")
	if m.inputMode != inputNone || m.filter != "pack" {
		t.Fatalf("after enter: mode %v filter %q", m.inputMode, m.filter)
	}

	m = press(t, m, "/", "x", "esc")
	if m.filter != "pack" {
		t.Fatalf("esc did not restore the filter: %q", m.filter)
	}
}

func TestFindRevealsFile(t *testing.T) {
	m := selectLayer(t, newModel(t, newGateway(), Options{}), 2)

	m = press(t, m, "f", "m", "a", "i", "n")
	if len(m.findResults) == 0 {
		t.Fatal("no fuzzy matches")
	}
	m = do(t, m, "enter")

	if m.snapshot.SelectedFile != ns+"/app/dist/main.js" {
		t.Fatalf("selected file = %q", m.snapshot.SelectedFile)
	}
	if !m.snapshot.Expanded["/app"] || !m.snapshot.Expanded["/app/dist"] {
		t.Fatalf("ancestors not expanded: %v", m.snapshot.Expanded)
	}
	if got := m.rows[m.treeCursor].Node.Path; got != "/app/dist/main.js" {
		t.Fatalf("cursor on %s", got)
	}
}

func TestBackendFailureShowsStatus(t *testing.T) {
	gw := newGateway()
	gw.SetError(backend.CommandRetagImage, errors.New("docker not running"))
	m := newModel(t, gw, Options{})

	m = do(t, m, "enter")
	if !m.statusErr || !strings.Contains(m.status, "docker not running") {
		t.Fatalf("status = %q", m.status)
	}
	if m.snapshot.Phase != session.PhaseIdle {
		t.Fatalf("phase = %v, want idle", m.snapshot.Phase)
	}
}

func TestCycleThemePersists(t *testing.T) {
	m := newModel(t, newGateway(), Options{})
	m = press(t, m, "T")
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q", m.theme.Name)
	}
	p, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("saved theme = %q", p.Theme)
	}
}

func TestHelpOverlay(t *testing.T) {
	m := newModel(t, newGateway(), Options{})
	m = press(t, m, "?")
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help not shown")
	}
	m = press(t, m, "j")
	if m.showHelp {
		t.Fatal("help still shown")
	}
}

func TestBuildFileOpenEditSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Dockerfile")
	if err := os.WriteFile(path, []byte("FROM node:20\nRUN npm ci\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m := newModel(t, newGateway(), Options{})

	m = press(t, m, "B")
	if m.currentView != ViewBuild || m.inputMode != inputBuildPath {
		t.Fatalf("view %v mode %v", m.currentView, m.inputMode)
	}
	m.input.SetValue(path)
	m = do(t, m, "enter")
	if m.snapshot.BuildFile == nil || m.snapshot.BuildFile.Analysis.BaseImage != "node:20" {
		t.Fatalf("build file = %#v", m.snapshot.BuildFile)
	}
	if !strings.Contains(m.View(), "Base image: node:20") {
		t.Fatal("analysis not rendered")
	}

	m = press(t, m, "e")
	if !m.editing {
		t.Fatal("editor not active")
	}
	m.editor.SetValue("FROM node:22\nRUN npm ci\n")
	m = press(t, m, "esc")
	if m.editing || !m.snapshot.BuildFile.Dirty || m.snapshot.BuildFile.Analysis.BaseImage != "node:22" {
		t.Fatalf("edits not applied: editing=%t %#v", m.editing, m.snapshot.BuildFile)
	}

	m = do(t, m, "ctrl+s")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != m.editor.Value() {
		t.Fatalf("saved %q, editor has %q", data, m.editor.Value())
	}
	if m.snapshot.BuildFile.Dirty {
		t.Fatal("build file still dirty after save")
	}
}

func TestLogViewFiltersByLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layerscope.log")
	lines := `{"level":"debug","ts":1700000000.1,"logger":"session","msg":"discarded stale response","command":"get_layer_files"}
{"level":"info","ts":1700000000.2,"logger":"session","msg":"image loaded","layers":3}
{"level":"warn","ts":1700000000.3,"logger":"app","msg":"image refresh failed"}
`
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m := newModel(t, newGateway(), Options{Config: &config.Config{LogPath: path}})

	m = press(t, m, "L")
	if m.currentView != ViewLogs {
		t.Fatalf("view = %v", m.currentView)
	}
	next, _ := m.Update(readLogsCmd(path)())
	m = next.(Model)

	view := m.View()
	if !strings.Contains(view, "image loaded") || strings.Contains(view, "discarded stale response") {
		t.Fatalf("info view:\n%s", view)
	}

	m = press(t, m, "w")
	view = m.View()
	if strings.Contains(view, "image loaded") || !strings.Contains(view, "image refresh failed") {
		t.Fatalf("warn view:\n%s", view)
	}
}

func TestStaleLogTickIsDropped(t *testing.T) {
	m := newModel(t, newGateway(), Options{})
	m = press(t, m, "L")
	if _, cmd := m.Update(logTickMsg{gen: m.logGen - 1}); cmd != nil {
		t.Fatal("stale tick re-armed the log refresh")
	}
	if _, cmd := m.Update(logTickMsg{gen: m.logGen}); cmd == nil {
		t.Fatal("current tick did not re-arm the log refresh")
	}
}
