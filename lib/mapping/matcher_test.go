package mapping

import (
	"errors"
	"testing"
)

type mapping struct {
	pattern string
	handler string
}

func build(t *testing.T, ms []mapping) *Matcher[string] {
	t.Helper()
	m := NewMatcher[string]()
	for _, mm := range ms {
		if err := m.Add(mm.pattern, mm.handler); err != nil {
			t.Fatalf("Add(%q): %v", mm.pattern, err)
		}
	}
	return m
}

func permutations(ms []mapping) [][]mapping {
	if len(ms) <= 1 {
		return [][]mapping{ms}
	}
	var out [][]mapping
	for i := range ms {
		rest := make([]mapping, 0, len(ms)-1)
		rest = append(rest, ms[:i]...)
		rest = append(rest, ms[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]mapping{ms[i]}, p...))
		}
	}
	return out
}

func TestExactBeatsEverythingInAnyOrder(t *testing.T) {
	ms := []mapping{
		{"/a/*", "H1"},
		{"/a/b", "H2"},
		{"*.ext", "H3"},
		{"regex:/a/.*", "H4"},
	}
	for _, order := range permutations(ms) {
		m := build(t, order)
		got, ok := m.Match("/a/b")
		if !ok {
			t.Fatalf("order %v: no match", order)
		}
		if got.Handler != "H2" || got.Kind() != Exact {
			t.Errorf("order %v: got %s (%s), want H2 (EXACT)", order, got.Handler, got.Kind())
		}
	}
}

func TestLongestPrefixWins(t *testing.T) {
	ms := []mapping{{"/a/*", "H1"}, {"/a/b/*", "H2"}}
	for _, order := range permutations(ms) {
		m := build(t, order)
		got, ok := m.Match("/a/b/c")
		if !ok || got.Handler != "H2" {
			t.Errorf("order %v: got %q, want H2", order, got.Handler)
		}
	}
}

func TestMatchKinds(t *testing.T) {
	m := build(t, []mapping{
		{"/exact", "exact"},
		{"/files/*", "prefix"},
		{"*.json", "ext"},
		{`regex:/users/(?P<id>\d+)`, "regex"},
	})

	tests := []struct {
		path    string
		want    string
		kind    Kind
		matched bool
	}{
		{"/exact", "exact", Exact, true},
		{"/files/report.pdf", "prefix", Prefix, true},
		{"/files/data.json", "ext", Extension, true},
		{"/users/42", "regex", Regex, true},
		{"/users/42/edit", "", 0, false},
		{"/exact/", "", 0, false},
		{"/nothing", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := m.Match(tt.path)
			if ok != tt.matched {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.path, ok, tt.matched)
			}
			if !ok {
				return
			}
			if got.Handler != tt.want || got.Kind() != tt.kind {
				t.Errorf("Match(%q) = %s/%s, want %s/%s", tt.path, got.Handler, got.Kind(), tt.want, tt.kind)
			}
			if got.PathInfo != tt.path {
				t.Errorf("PathInfo = %q, want %q", got.PathInfo, tt.path)
			}
		})
	}
}

func TestPrefixBeatsRegex(t *testing.T) {
	m := build(t, []mapping{{"regex:/a/.*", "re"}, {"/a/*", "prefix"}})
	got, _ := m.Match("/a/z")
	if got.Handler != "prefix" {
		t.Errorf("got %q, want prefix", got.Handler)
	}
}

func TestPrefixTieIsRejectedAtRegistration(t *testing.T) {
	// Two prefixes of equal length that both match a path share the same
	// literal, so the only way to tie is registering the pattern twice.
	m := NewMatcher[string]()
	if err := m.Add("/a/*", "first"); err != nil {
		t.Fatal(err)
	}
	if err := m.Add("/a/*", "second"); !errors.Is(err, ErrDuplicatePattern) {
		t.Fatalf("err = %v, want ErrDuplicatePattern", err)
	}
	got, _ := m.Match("/a/x")
	if got.Handler != "first" {
		t.Errorf("got %q, want first", got.Handler)
	}
}

func TestFirstExtensionWins(t *testing.T) {
	m := build(t, []mapping{{"*.json", "json"}, {"*.data.json", "data"}})
	got, _ := m.Match("/x.data.json")
	if got.Handler != "json" {
		t.Errorf("got %q, want json (first registered terminal match)", got.Handler)
	}
}

func TestNoMatch(t *testing.T) {
	m := build(t, []mapping{{"/a/*", "H1"}})
	if _, ok := m.Match("/b"); ok {
		t.Fatal("expected no match")
	}
	if _, ok := NewMatcher[int]().Match("/"); ok {
		t.Fatal("empty matcher must not match")
	}
}

func TestAddErrors(t *testing.T) {
	m := NewMatcher[string]()
	if err := m.Add("/a", "x"); err != nil {
		t.Fatal(err)
	}
	if err := m.Add("/a", "y"); !errors.Is(err, ErrDuplicatePattern) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := m.Add("regex:(", "bad"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("bad regex err = %v", err)
	}
	if err := m.Add("", "empty"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("empty err = %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestPatternGroup(t *testing.T) {
	p := MustParse(`regex:/orders/(?P<order>\w+)/items/(?P<item>\d+)`)

	if v, ok := p.Group("/orders/abc/items/7", "item"); !ok || v != "7" {
		t.Errorf("item = %q, %v", v, ok)
	}
	if _, ok := p.Group("/orders/abc", "item"); ok {
		t.Error("non-matching path must not yield a group")
	}
	if _, ok := p.Group("/orders/abc/items/7", "missing"); ok {
		t.Error("unknown group must not yield a value")
	}
	if _, ok := MustParse("/a/*").Group("/a/b", "x"); ok {
		t.Error("prefix pattern has no groups")
	}
}

func TestRegexIsAnchored(t *testing.T) {
	p := MustParse("regex:/a|/b")
	if p.Matches("/ab") || p.Matches("x/a") {
		t.Error("regex must match the whole path")
	}
	if !p.Matches("/b") {
		t.Error("alternation should match /b")
	}
}
