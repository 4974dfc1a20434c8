package testutil

import "github.com/MeKo-Tech/roiscan/internal/region"

// Scene is a named synthetic scan scenario with its expected outcome.
type Scene struct {
	Name     string
	Config   SceneConfig
	Expected string // expected recognized text, empty for no-text scenes
}

// StandardScenes returns the scenarios shared by the scan and integration
// tests. Their texts avoid glyph pairs that look alike in the 7x13 font.
func StandardScenes() []Scene {
	withText := func(text string) SceneConfig {
		cfg := DefaultSceneConfig()
		cfg.Text = text
		return cfg
	}

	offset := withText("RXK-7")
	offset.Region = region.ScanRegion{X: 300, Y: 200, Width: 240, Height: 120}

	blank := withText("")

	return []Scene{
		{Name: "default", Config: DefaultSceneConfig(), Expected: "SCAN-42.XY"},
		{Name: "mixed-case", Config: withText("Scan.Text-9"), Expected: "Scan.Text-9"},
		{Name: "offset-region", Config: offset, Expected: "RXK-7"},
		{Name: "blank", Config: blank, Expected: ""},
	}
}

// SceneByName returns the standard scene called name.
func SceneByName(name string) (Scene, bool) {
	for _, s := range StandardScenes() {
		if s.Name == name {
			return s, true
		}
	}
	return Scene{}, false
}
