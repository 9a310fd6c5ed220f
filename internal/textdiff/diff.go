// Package textdiff computes a line-level edit script between two texts.
package textdiff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

type Kind string

const (
	Added     Kind = "added"
	Removed   Kind = "removed"
	Unchanged Kind = "unchanged"
)

type Line struct {
	Type    Kind   `json:"type"`
	Content string `json:"content"`
}

// Diff returns the edit script from a to b. Within a replaced block the
// removed lines come before the added ones. Empty text is zero lines.
func Diff(a, b string) []Line {
	al, bl := splitLines(a), splitLines(b)
	m := difflib.NewMatcherWithJunk(al, bl, false, nil)

	out := make([]Line, 0, len(al)+len(bl))
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			out = appendLines(out, Unchanged, al[op.I1:op.I2])
		case 'd':
			out = appendLines(out, Removed, al[op.I1:op.I2])
		case 'i':
			out = appendLines(out, Added, bl[op.J1:op.J2])
		case 'r':
			out = appendLines(out, Removed, al[op.I1:op.I2])
			out = appendLines(out, Added, bl[op.J1:op.J2])
		}
	}
	return out
}

// Old rebuilds the first input from a script; New rebuilds the second.
func Old(lines []Line) string { return join(lines, Removed) }
func New(lines []Line) string { return join(lines, Added) }

// Counts tallies the script by kind.
func Counts(lines []Line) (added, removed, unchanged int) {
	for _, l := range lines {
		switch l.Type {
		case Added:
			added++
		case Removed:
			removed++
		case Unchanged:
			unchanged++
		}
	}
	return
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func appendLines(out []Line, k Kind, lines []string) []Line {
	for _, l := range lines {
		out = append(out, Line{Type: k, Content: l})
	}
	return out
}

func join(lines []Line, side Kind) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Type == Unchanged || l.Type == side {
			parts = append(parts, l.Content)
		}
	}
	return strings.Join(parts, "\n")
}
