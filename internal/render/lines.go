// Package render turns a finished report into downloadable document formats.
// The flowing (DOCX) renderer works from the raw answer text; the paginated
// (PDF) renderer works from the HTML markup.
package render

import (
	"regexp"
	"strings"
)

// LineKind tags what a single line of raw answer text represents.
type LineKind int

const (
	LineBlank LineKind = iota
	LineHeading
	LineBullet
	LineNumbered
	LinePlain
)

// Line is a classified line of raw answer text. Level is set for headings
// only and is capped at 3.
type Line struct {
	Kind  LineKind
	Level int
	Text  string
}

var numberedRe = regexp.MustCompile(`^\d+\.\s+`)

// ClassifyLine inspects one raw text line and reports how a renderer should
// treat it. Classification happens on the trimmed line, so indented list
// markers still count.
func ClassifyLine(raw string) Line {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Line{Kind: LineBlank}
	case strings.HasPrefix(s, "#"):
		level := 0
		for level < 3 && level < len(s) && s[level] == '#' {
			level++
		}
		return Line{Kind: LineHeading, Level: level, Text: strings.TrimSpace(strings.TrimLeft(s, "# "))}
	case strings.HasPrefix(s, "* "), strings.HasPrefix(s, "- "):
		return Line{Kind: LineBullet, Text: strings.TrimSpace(s[2:])}
	case numberedRe.MatchString(s):
		return Line{Kind: LineNumbered, Text: numberedRe.ReplaceAllString(s, "")}
	default:
		return Line{Kind: LinePlain, Text: s}
	}
}
