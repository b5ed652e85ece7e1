// Package slug derives URL-safe identifiers from display text and resolves
// collisions against a caller-supplied uniqueness scope.
package slug

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExhausted is returned when no candidate fits the field's length budget.
var ErrExhausted = errors.New("slug: length budget exhausted")

// Taken reports whether a candidate slug already exists in the scope the
// caller needs uniqueness within (siblings of a topic, posts of one day, ...).
type Taken func(candidate string) (bool, error)

// Make normalizes text into a slug: lowercase, runs of non-alphanumeric
// characters collapsed to a single dash, leading and trailing dashes
// trimmed, truncated to maxLen.
func Make(text string, maxLen int) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return truncate(b.String(), maxLen)
}

// Allocate returns the normalized slug for text, or the first numeric-suffix
// variant (-2, -3, ...) the scope does not contain. The base is truncated
// further whenever the suffix would overflow maxLen. Allocation is a pure
// read over the scope; persisting the result is the caller's job.
func Allocate(text string, maxLen int, taken Taken) (string, error) {
	base := Make(text, maxLen)
	if base == "" {
		base = "untitled"
	}

	candidate := base
	for n := 2; ; n++ {
		exists, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}

		suffix := fmt.Sprintf("-%d", n)
		room := maxLen - len(suffix)
		if room <= 0 {
			return "", ErrExhausted
		}
		trimmed := base
		if len(base) > room {
			trimmed = truncate(base, room)
		}
		if trimmed == "" {
			return "", ErrExhausted
		}
		candidate = trimmed + suffix
	}
}

func truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.Trim(s, "-")
}
