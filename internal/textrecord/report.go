// Package textrecord converts mock tests, quiz results and support tickets to and from the
// line-oriented Korean text files the portal keeps on disk.
//
// Decoding is lenient: malformed fields fall back to defaults and incomplete trailing blocks are
// kept. Every decoder returns a Report describing what it had to paper over instead of an error.
package textrecord

import (
	"fmt"
	"strings"
)

// Report describes how cleanly a record was decoded. A zero Report means the record parsed fully.
type Report struct {
	Partial bool
	Reasons []string
}

func (r *Report) addf(format string, args ...any) {
	r.Partial = true
	r.Reasons = append(r.Reasons, fmt.Sprintf(format, args...))
}

// String joins the reasons for logging.
func (r Report) String() string {
	if !r.Partial {
		return "parsed"
	}
	return "partially parsed: " + strings.Join(r.Reasons, "; ")
}

// cleanLine trims surrounding whitespace and drops control characters below 0x20 other than
// tab, line feed and carriage return. It reports whether anything was dropped.
func cleanLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	dropped := false
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			dropped = true
			return -1
		}
		return r
	}, line)
	return cleaned, dropped
}

func splitLines(content []byte) []string {
	return strings.Split(string(content), "\n")
}

// escapePrefix marks a body line that would otherwise be read as structure.
const escapePrefix = `\`

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine flattens a value written on one labelled line.
func singleLine(value string) string {
	return lineBreaks.Replace(value)
}

// escapeBody prefixes every line whose trimmed text starts with one of the reserved prefixes,
// or with the escape prefix itself, so that free text never reads as a header or label.
func escapeBody(text string, reserved []string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, escapePrefix) || hasAnyPrefix(trimmed, reserved) {
			lines[i] = escapePrefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// unescapeLine reverses escapeBody for one raw line. ok reports whether the line was escaped.
func unescapeLine(raw string) (line string, ok bool) {
	if strings.HasPrefix(raw, escapePrefix) {
		return strings.TrimPrefix(raw, escapePrefix), true
	}
	return raw, false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
