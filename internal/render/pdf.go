package render

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"

	"github.com/sageview/sageview/internal/report"
	"github.com/sageview/sageview/internal/search"
)

// PDF writes the report as a paginated A4 document. The body is laid out from
// the HTML markup so headings, lists and citation anchors keep their
// structure.
func PDF(w io.Writer, rep report.Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Report: "+rep.Query, true)
	pdf.AliasNbPages("")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(119, 119, 119)
		pdf.CellFormat(0, 5, "Research Report", "", 1, "L", false, 0, "")
		pdf.Ln(3)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(119, 119, 119)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(44, 62, 80)
	pdf.CellFormat(0, 9, "Research Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(85, 85, 85)
	pdf.MultiCell(0, 6, "Query: "+rep.Query, "", "L", false)
	pdf.Ln(4)
	bodyFont(pdf)

	markup := rep.Markup
	if strings.TrimSpace(markup) == "" {
		markup = "<p>Content not available.</p>"
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse markup: %w", err)
	}
	writeBlocks(pdf, root)

	writeSourceList(pdf, rep)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func bodyFont(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(51, 51, 51)
}

func writeBlocks(pdf *gofpdf.Fpdf, n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3":
			size := 14.0
			if n.Data == "h3" {
				size = 12.0
			}
			text := collapseWhitespace(textContent(n))
			if text != "" {
				pdf.Ln(2)
				pdf.SetFont("Helvetica", "B", size)
				pdf.SetTextColor(44, 62, 80)
				pdf.MultiCell(0, 7, text, "", "L", false)
				bodyFont(pdf)
				pdf.Ln(1)
			}
			return
		case "p":
			writeInline(pdf, inlineSegments(n), "")
			pdf.Ln(3)
			return
		case "ul", "ol":
			item := 0
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || c.Data != "li" {
					continue
				}
				item++
				prefix := "• "
				if n.Data == "ol" {
					prefix = fmt.Sprintf("%d. ", item)
				}
				writeInline(pdf, inlineSegments(c), prefix)
				pdf.Ln(1)
			}
			pdf.Ln(3)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlocks(pdf, c)
	}
}

// segment is one inline run: plain text, a link, or a citation marker.
type segment struct {
	text string
	href string
	sup  bool
}

func inlineSegments(n *html.Node) []segment {
	var segs []segment
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			segs = append(segs, segment{text: node.Data})
		case node.Type == html.ElementNode && node.Data == "sup":
			segs = append(segs, segment{text: collapseWhitespace(textContent(node)), sup: true})
			return
		case node.Type == html.ElementNode && node.Data == "a":
			href := attr(node, "href")
			if strings.HasPrefix(href, "#") || href == "" {
				segs = append(segs, segment{text: collapseWhitespace(textContent(node))})
			} else {
				segs = append(segs, segment{text: collapseWhitespace(textContent(node)), href: href})
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return segs
}

// writeInline lays out one block of inline segments. Blocks made of plain
// text only are justified; blocks with links or citation markers fall back to
// sequential writes.
func writeInline(pdf *gofpdf.Fpdf, segs []segment, prefix string) {
	plain := true
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, s := range segs {
		if s.sup || s.href != "" {
			plain = false
		}
		sb.WriteString(s.text)
	}
	text := collapseWhitespace(sb.String())
	if text == "" {
		return
	}
	if plain {
		pdf.MultiCell(0, 5, text, "", "J", false)
		return
	}
	if prefix != "" {
		pdf.Write(5, prefix)
	}
	for _, s := range segs {
		t := collapseWhitespace(s.text)
		if t == "" {
			continue
		}
		switch {
		case s.sup:
			pdf.SetFont("Helvetica", "", 7)
			pdf.SetTextColor(0, 102, 204)
			pdf.Write(5, " "+t)
			bodyFont(pdf)
		case s.href != "":
			pdf.SetTextColor(0, 102, 204)
			pdf.WriteLinkString(5, t, s.href)
			bodyFont(pdf)
		default:
			pdf.Write(5, s.text)
		}
	}
	pdf.Ln(5)
}

// writeSourceList renders the cited sources on a fresh page. Deep reports get
// a compact numbered list; quick reports get one card per source with the URL
// on its own line and a short text preview.
func writeSourceList(pdf *gofpdf.Fpdf, rep report.Report) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(44, 62, 80)
	pdf.CellFormat(0, 8, sourcesHeading(rep.Depth), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(rep.Sources) == 0 {
		bodyFont(pdf)
		pdf.MultiCell(0, 5, "No sources were cited.", "", "L", false)
		return
	}

	for _, src := range rep.Sources {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(17, 17, 17)
		pdf.Write(4.5, fmt.Sprintf("[%d] ", src.Index+1))
		pdf.SetTextColor(51, 51, 51)
		pdf.Write(4.5, sourceTitle(src))
		if rep.Depth == search.DepthDeep {
			if src.URL != "" {
				pdf.SetFont("Helvetica", "", 8)
				pdf.SetTextColor(0, 102, 204)
				pdf.WriteLinkString(4.5, " ("+src.URL+")", src.URL)
			}
			pdf.Ln(6)
			continue
		}
		pdf.Ln(5)
		if src.URL != "" {
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(0, 102, 204)
			pdf.WriteLinkString(4.5, src.URL, src.URL)
			pdf.Ln(5)
		}
		if src.Preview != "" {
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(85, 85, 85)
			pdf.MultiCell(0, 4, src.Preview+"...", "", "L", false)
		}
		pdf.Ln(3)
	}
}

var wsRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
