package ui

import "testing"

func TestNextThemeCycles(t *testing.T) {
	names := ThemeNames()
	for i, name := range names {
		want := names[(i+1)%len(names)]
		if got := NextTheme(name); got != want {
			t.Errorf("NextTheme(%q) = %q, want %q", name, got, want)
		}
	}
	if got := NextTheme("missing"); got != names[0] {
		t.Errorf("NextTheme(missing) = %q, want %q", got, names[0])
	}
}

func TestGetThemeFallsBack(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate) = %q", got)
	}
	if got := GetTheme("nope").Name; got != "Dracula" {
		t.Fatalf("GetTheme(nope) = %q, want Dracula", got)
	}
}

func TestThemesDefineDiffColors(t *testing.T) {
	for _, name := range ThemeNames() {
		theme := GetTheme(name)
		for _, category := range []string{"added", "removed", "modified", "unchanged"} {
			if theme.DiffColors[category] == "" {
				t.Errorf("theme %s has no color for %s", name, category)
			}
		}
		if theme.Chroma == "" {
			t.Errorf("theme %s has no syntax style", name)
		}
	}
}
