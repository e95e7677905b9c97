package typos

import (
	"reflect"
	"testing"

	"rulesmith/internal/schema"
)

func TestAdjacent(t *testing.T) {
	tests := []struct {
		key  byte
		want string
	}{
		{'s', "adwx"},
		{'q', "aw"},
		{'p', "o"},
		{'1', ""},
	}
	for _, tt := range tests {
		if got := string(Adjacent(tt.key)); got != tt.want {
			t.Errorf("Adjacent(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"transpositions", Transpositions("abc"), []string{"bac", "acb"}},
		{"short omissions", Omissions("abc"), nil},
		{"omissions", Omissions("form"), []string{"orm", "frm", "fom", "for"}},
		{"duplications", Duplications("ab"), []string{"aab", "abb"}},
		{"insertions", Insertions("q"), []string{"qa", "aq", "qw", "wq"}},
		{"replacements", Replacements("q"), []string{"a", "w"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestAllKeyboard(t *testing.T) {
	base := len(All("form", false))
	if base != 3+4+4 {
		t.Errorf("len(All(form, false)) = %d, want 11", base)
	}
	if len(All("form", true)) <= base {
		t.Error("keyboard typos should add to the base set")
	}
	if All("", true) != nil {
		t.Error("All of an empty word should be nil")
	}
}

func TestGenerate(t *testing.T) {
	opts := Options{MinWordLength: 3, Validation: map[string]bool{"from": true}}
	got := Generate([]string{"form", "fork", "at"}, opts)

	if _, ok := got["from"]; ok {
		t.Error("a validation word was generated as a typo")
	}
	if _, ok := got["form"]; ok {
		t.Error("a word was generated as its own typo")
	}
	want := []schema.Candidate{
		{Word: "form", Boundary: schema.BoundaryNone},
		{Word: "fork", Boundary: schema.BoundaryNone},
	}
	if !reflect.DeepEqual(got["for"], want) {
		t.Errorf("for = %v, want %v", got["for"], want)
	}
	for typo, cands := range got {
		for _, c := range cands {
			if c.Word == "at" {
				t.Errorf("%s came from a word below the minimum length", typo)
			}
		}
	}
}

func TestGenerateWorkersAgree(t *testing.T) {
	words := []string{"the", "form", "fork", "from", "tion", "action", "motion", "there", "their"}
	want := Generate(words, Options{Workers: 1, Keyboard: true, MinWordLength: 3})
	for _, workers := range []int{2, 4, 16} {
		got := Generate(words, Options{Workers: workers, Keyboard: true, MinWordLength: 3})
		if !reflect.DeepEqual(got, want) {
			t.Errorf("workers=%d: result differs from sequential", workers)
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	words := []string{"the", "form", "fork", "from", "tion", "action", "motion", "there", "their", "because"}
	for _, workers := range []int{1, 4} {
		b.Run(map[int]string{1: "sequential", 4: "parallel"}[workers], func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				Generate(words, Options{Workers: workers, Keyboard: true})
			}
		})
	}
}
