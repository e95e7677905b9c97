package platform

import (
	"testing"

	"rulesmith/internal/config"
	"rulesmith/internal/schema"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		platform Descriptor
		typo     string
		boundary schema.Boundary
		want     string
	}{
		{"qmk none", QMK(), "teh", schema.BoundaryNone, "teh"},
		{"qmk left", QMK(), "teh", schema.BoundaryLeft, ":teh"},
		{"qmk right", QMK(), "teh", schema.BoundaryRight, "teh:"},
		{"qmk both", QMK(), "teh", schema.BoundaryBoth, ":teh:"},
		{"espanso both", Espanso(), "teh", schema.BoundaryBoth, "teh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.platform.Render(tt.typo, tt.boundary); got != tt.want {
				t.Errorf("Render(%q, %v) = %q, want %q", tt.typo, tt.boundary, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	q := QMK()
	q.MinTypoLength = 4

	tests := []struct {
		name string
		c    schema.Correction
		ok   bool
	}{
		{"valid", schema.Correction{Typo: "tehir", Word: "their"}, true},
		{"apostrophe", schema.Correction{Typo: "dont'", Word: "don't"}, true},
		{"digit in typo", schema.Correction{Typo: "teh1", Word: "the"}, false},
		{"too short", schema.Correction{Typo: "teh", Word: "the"}, false},
		{"long word", schema.Correction{Typo: "abcd", Word: string(make([]byte, 70))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := q.Check(tt.c)
			if (detail == "") != tt.ok {
				t.Errorf("Check(%v) = %q, want ok=%v", tt.c, detail, tt.ok)
			}
		})
	}

	if d := Espanso().Check(schema.Correction{Typo: "é1", Word: "x"}); d != "" {
		t.Errorf("Espanso Check = %q, want no restriction", d)
	}
}

func TestFromConfig(t *testing.T) {
	no := false
	d, err := FromConfig(config.Platform{
		Name:            "qmk",
		MaxRules:        1500,
		MatchDirection:  "ltr",
		BoundaryMarkers: &no,
	})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if d.MaxRules != 1500 {
		t.Errorf("MaxRules = %d, want 1500", d.MaxRules)
	}
	if d.Direction != LeftToRight {
		t.Errorf("Direction = %v, want ltr", d.Direction)
	}
	if d.BoundaryMarkers {
		t.Error("BoundaryMarkers should be overridden to false")
	}
	if !d.InlineMarkers {
		t.Error("InlineMarkers should keep the preset value")
	}

	if _, err := FromConfig(config.Platform{Name: "vim"}); err == nil {
		t.Error("FromConfig(vim) should fail")
	}
}

func TestRankTiers(t *testing.T) {
	freq := map[string]float64{"the": 100, "their": 50, "action": 5, "nation": 3, "rare": 1}
	corrections := []schema.Correction{
		{Typo: "teh", Word: "the", Boundary: schema.BoundaryBoth},
		{Typo: "tehir", Word: "their", Boundary: schema.BoundaryNone},
		{Typo: "rrae", Word: "rare", Boundary: schema.BoundaryNone},
	}
	patterns := []schema.Pattern{{
		Correction: schema.Correction{Typo: "toin", Word: "tion", Boundary: schema.BoundaryRight},
		Replacements: []schema.Correction{
			{Typo: "actoin", Word: "action", Boundary: schema.BoundaryRight},
			{Typo: "natoin", Word: "nation", Boundary: schema.BoundaryRight},
		},
	}}

	ranked := Rank(corrections, patterns, freq, map[string]bool{"rare": true})

	wantOrder := []string{"rrae", "toin", "teh", "tehir"}
	if len(ranked) != len(wantOrder) {
		t.Fatalf("Rank returned %d rules, want %d", len(ranked), len(wantOrder))
	}
	for i, typo := range wantOrder {
		if ranked[i].Typo != typo {
			t.Errorf("ranked[%d] = %q, want %q", i, ranked[i].Typo, typo)
		}
	}
	if ranked[1].Score != 8 {
		t.Errorf("pattern score = %v, want 8", ranked[1].Score)
	}

	kept, dropped := Limit(ranked, 2)
	if len(kept) != 2 || len(dropped) != 2 {
		t.Errorf("Limit(2) = %d kept, %d dropped, want 2 and 2", len(kept), len(dropped))
	}
	if kept, _ := Limit(ranked, 0); len(kept) != 4 {
		t.Errorf("Limit(0) kept %d, want 4", len(kept))
	}
}
