// Package cite rewrites model output so every numeric citation marker becomes
// individually addressable, then binds markers in the rendered markup to
// zero-based source indices. Both passes are idempotent: running them again
// over their own output changes nothing.
package cite

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	groupedRe  = regexp.MustCompile(`\[\s*(\d+\s*(?:,\s*\d+\s*)*)\s*\]`)
	adjacentRe = regexp.MustCompile(`(\[\d+\])(\[\d+\])`)
	markerRe   = regexp.MustCompile(`\[(\d+)\]`)
	supPairRe  = regexp.MustCompile(`(</sup>)(<sup>)`)
	spaceRunRe = regexp.MustCompile(`\s{2,}`)
)

// SplitGrouped splits comma-grouped citations like [2, 5] into separate
// adjacent markers [2] [5], and inserts a single space between markers that
// already sit back to back, so downstream Markdown rendering treats each as a
// distinct token.
func SplitGrouped(text string) string {
	out := groupedRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := groupedRe.FindStringSubmatch(m)[1]
		parts := strings.Split(inner, ",")
		markers := make([]string, 0, len(parts))
		for _, p := range parts {
			if n := strings.TrimSpace(p); n != "" {
				markers = append(markers, "["+n+"]")
			}
		}
		return strings.Join(markers, " ")
	})
	// Iterate to a fixpoint: a single pass over [1][2][3] leaves the trailing
	// pair touching.
	for {
		next := adjacentRe.ReplaceAllString(out, "$1 $2")
		if next == out {
			return out
		}
		out = next
	}
}

// markdown matches the original renderer's plugin set: tables, strikethrough,
// task lists, footnotes.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote),
)

// Render converts normalized Markdown to HTML.
func Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

// BindMarkers rewrites every standalone bracket marker [N] in rendered HTML
// into a superscript anchor carrying the zero-based citation index N-1 and an
// accessible label. Markers embedded in URLs, image syntax, or footnote
// markup are left alone: the character before a live marker may not be '!',
// ']', '/', or alphanumeric, and the character after may not be ']'. Adjacent
// anchors get a separating space and whitespace runs collapse to one.
func BindMarkers(html string) string {
	matches := markerRe.FindAllStringSubmatchIndex(html, -1)
	if len(matches) > 0 {
		var b strings.Builder
		b.Grow(len(html) + len(matches)*96)
		pos := 0
		for _, m := range matches {
			start, end := m[0], m[1]
			if !bindable(html, start, end) {
				continue
			}
			n, err := strconv.Atoi(html[m[2]:m[3]])
			if err != nil {
				continue
			}
			b.WriteString(html[pos:start])
			fmt.Fprintf(&b,
				"<sup><a href='#' class='citation-marker' data-citation-index='%d' aria-label='Citation %d'>[%d]</a></sup>",
				n-1, n, n)
			pos = end
		}
		b.WriteString(html[pos:])
		html = b.String()
	}
	html = supPairRe.ReplaceAllString(html, "$1 $2")
	return spaceRunRe.ReplaceAllString(html, " ")
}

// bindable reports whether the marker at [start,end) stands alone.
func bindable(html string, start, end int) bool {
	if start > 0 {
		switch c := html[start-1]; {
		case c == '!' || c == ']' || c == '/':
			return false
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			return false
		}
	}
	if end < len(html) && html[end] == ']' {
		return false
	}
	// Already bound markers sit immediately before their closing anchor tag.
	if strings.HasPrefix(html[end:], "</a>") {
		return false
	}
	return true
}

// Normalize applies the full pipeline: split grouped markers, render
// Markdown, bind markers in the result. It returns the normalized text and
// the bound markup.
func Normalize(raw string) (normalized string, markup string, err error) {
	normalized = SplitGrouped(raw)
	html, err := Render(normalized)
	if err != nil {
		return "", "", err
	}
	return normalized, BindMarkers(html), nil
}
