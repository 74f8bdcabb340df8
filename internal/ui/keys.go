package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding

	// View switching
	ViewLogs  key.Binding
	ViewBuild key.Binding

	// Browse actions
	Select         key.Binding
	Expand         key.Binding
	Collapse       key.Binding
	Filter         key.Binding
	Find           key.Binding
	ToggleCompare  key.Binding
	RunCompare     key.Binding
	ToggleUnchange key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Logs actions
	CycleLevel key.Binding

	// Build file actions
	Open key.Binding
	Edit key.Binding
	Save key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next pane"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous pane"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back to browser"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh images"),
		),

		// View switching
		ViewLogs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log view"),
		),
		ViewBuild: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "Build file view"),
		),

		// Browse actions
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "Select / open"),
		),
		Expand: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/right", "Expand directory"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/left", "Collapse directory"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Filter tree"),
		),
		Find: key.NewBinding(
			key.WithKeys("f", "ctrl+p"),
			key.WithHelp("f", "Find file"),
		),
		ToggleCompare: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Comparison mode"),
		),
		RunCompare: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Compare selected layers"),
		),
		ToggleUnchange: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Toggle unchanged paths"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),

		// Logs actions
		CycleLevel: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "Cycle minimum level"),
		),

		// Build file actions
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Open build file"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit build file"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save build file"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.Tab, k.ShiftTab, k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		// Browser
		{k.Select, k.Expand, k.Collapse, k.Filter, k.Find, k.Refresh},
		// Comparison
		{k.ToggleCompare, k.RunCompare, k.ToggleUnchange},
		// Other views
		{k.ViewLogs, k.CycleLevel, k.ViewBuild, k.Open, k.Edit, k.Save},
		// General
		{k.Escape, k.CycleTheme, k.Help, k.Quit},
	}
}
