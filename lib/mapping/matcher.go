// Package mapping resolves request path info to a registered handler.
//
// Four pattern styles are supported:
//
//	/users/list      exact: literal equality
//	/users/*         prefix: path info starts with "/users/"
//	*.json           extension: path info ends with ".json"
//	regex:/u/(?P<id>\d+)   regex: full match against path info
//
// Precedence is deterministic: the first exact or extension match ends the
// scan; otherwise the longest prefix wins (first registered on a tie);
// otherwise the first matching regex.
package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RegexPrefix marks a pattern as a regular expression.
const RegexPrefix = "regex:"

// Kind classifies a mapping pattern.
type Kind int

const (
	Exact Kind = iota
	Prefix
	Extension
	Regex
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "EXACT"
	case Prefix:
		return "PREFIX"
	case Extension:
		return "EXTENSION"
	case Regex:
		return "REGEX"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	ErrDuplicatePattern = errors.New("mapping: duplicate pattern")
	ErrInvalidPattern   = errors.New("mapping: invalid pattern")
)

// Pattern is a classified mapping string.
type Pattern struct {
	raw     string
	kind    Kind
	literal string
	re      *regexp.Regexp
}

// Parse classifies a mapping string.
func Parse(raw string) (Pattern, error) {
	p := Pattern{raw: raw}
	switch {
	case strings.HasPrefix(raw, RegexPrefix):
		expr := strings.TrimPrefix(raw, RegexPrefix)
		re, err := regexp.Compile(`^(?:` + expr + `)$`)
		if err != nil {
			return Pattern{}, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, raw, err)
		}
		p.kind, p.literal, p.re = Regex, expr, re
	case strings.HasSuffix(raw, "*"):
		p.kind, p.literal = Prefix, strings.TrimSuffix(raw, "*")
	case strings.HasPrefix(raw, "*"):
		p.kind, p.literal = Extension, strings.TrimPrefix(raw, "*")
	case raw == "":
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	default:
		p.kind, p.literal = Exact, raw
	}
	return p, nil
}

// MustParse is Parse that panics on error.
func MustParse(raw string) Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as registered.
func (p Pattern) String() string { return p.raw }

// Kind returns the pattern style.
func (p Pattern) Kind() Kind { return p.kind }

// Literal returns the pattern with its wildcard or regex marker removed.
func (p Pattern) Literal() string { return p.literal }

// Matches reports whether pathInfo satisfies the pattern.
func (p Pattern) Matches(pathInfo string) bool {
	switch p.kind {
	case Exact:
		return pathInfo == p.literal
	case Prefix:
		return strings.HasPrefix(pathInfo, p.literal)
	case Extension:
		return strings.HasSuffix(pathInfo, p.literal)
	case Regex:
		return p.re.MatchString(pathInfo)
	}
	return false
}

// Group re-matches pathInfo and returns the named capture group. The second
// result is false when the pattern is not a regex, the path no longer
// matches, or the group does not exist.
func (p Pattern) Group(pathInfo, name string) (string, bool) {
	if p.kind != Regex {
		return "", false
	}
	m := p.re.FindStringSubmatch(pathInfo)
	if m == nil {
		return "", false
	}
	idx := p.re.SubexpIndex(name)
	if idx < 0 {
		return "", false
	}
	return m[idx], true
}

// Match is a successful resolution of a path to a handler.
type Match[H any] struct {
	Pattern  Pattern
	Handler  H
	PathInfo string
}

// Kind is shorthand for m.Pattern.Kind().
func (m Match[H]) Kind() Kind { return m.Pattern.Kind() }

type entry[H any] struct {
	pattern Pattern
	handler H
}

// Matcher holds mappings in registration order. Build it once at startup;
// Match is safe for concurrent use as long as Add is no longer called.
type Matcher[H any] struct {
	entries []entry[H]
	seen    map[string]struct{}
}

// NewMatcher returns an empty Matcher.
func NewMatcher[H any]() *Matcher[H] {
	return &Matcher[H]{seen: make(map[string]struct{})}
}

// Add registers handler under pattern.
func (m *Matcher[H]) Add(pattern string, handler H) error {
	if _, ok := m.seen[pattern]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePattern, pattern)
	}
	p, err := Parse(pattern)
	if err != nil {
		return err
	}
	m.seen[pattern] = struct{}{}
	m.entries = append(m.entries, entry[H]{pattern: p, handler: handler})
	return nil
}

// Len returns the number of registered mappings.
func (m *Matcher[H]) Len() int { return len(m.entries) }

// Match resolves pathInfo.
func (m *Matcher[H]) Match(pathInfo string) (Match[H], bool) {
	var best *entry[H]
	for i := range m.entries {
		e := &m.entries[i]
		if !e.pattern.Matches(pathInfo) {
			continue
		}
		switch e.pattern.kind {
		case Exact, Extension:
			return Match[H]{Pattern: e.pattern, Handler: e.handler, PathInfo: pathInfo}, true
		case Prefix:
			if best == nil || best.pattern.kind == Regex || len(e.pattern.literal) > len(best.pattern.literal) {
				best = e
			}
		case Regex:
			if best == nil {
				best = e
			}
		}
	}
	if best == nil {
		return Match[H]{}, false
	}
	return Match[H]{Pattern: best.pattern, Handler: best.handler, PathInfo: pathInfo}, true
}
