package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/sageview/sageview/internal/report"
	"github.com/sageview/sageview/internal/search"
)

// Half-point font sizes for the flowing layout.
const (
	docxTitleSize    = "32"
	docxHeadingSize  = "28"
	docxHeading2Size = "26"
	docxHeading3Size = "24"
)

// DOCX writes the report as a Word document. The body is rebuilt from the raw
// answer text line by line: blank lines close the open paragraph, headings and
// list items always start fresh paragraphs.
func DOCX(w io.Writer, rep report.Report) error {
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().AddText("Research Report").Size(docxTitleSize).Bold()
	q := doc.AddParagraph()
	q.AddText("Query: ").Bold()
	q.AddText(rep.Query)
	doc.AddParagraph()

	body := rep.Raw
	if strings.TrimSpace(body) == "" {
		body = "Content not available."
	}
	writeDOCXBody(doc, body)

	doc.AddParagraph().AddPageBreaks()
	doc.AddParagraph().AddText(sourcesHeading(rep.Depth)).Size(docxTitleSize).Bold()
	if len(rep.Sources) == 0 {
		doc.AddParagraph().AddText("No sources were cited.")
	}
	for _, src := range rep.Sources {
		p := doc.AddParagraph()
		p.AddText(fmt.Sprintf("[%d] ", src.Index+1)).Bold()
		p.AddText(sourceTitle(src))
		if rep.Depth == search.DepthDeep && src.URL != "" {
			p.AddText(" (" + src.URL + ")")
		}
	}

	_, err := doc.WriteTo(w)
	if err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func writeDOCXBody(doc *docx.Docx, body string) {
	var open *docx.Paragraph
	number := 0
	for _, raw := range strings.Split(body, "\n") {
		line := ClassifyLine(raw)
		if line.Kind != LineNumbered {
			number = 0
		}
		switch line.Kind {
		case LineBlank:
			open = nil
		case LineHeading:
			open = nil
			if line.Text == "" {
				continue
			}
			size := docxHeadingSize
			switch line.Level {
			case 2:
				size = docxHeading2Size
			case 3:
				size = docxHeading3Size
			}
			doc.AddParagraph().AddText(line.Text).Size(size).Bold()
		case LineBullet:
			open = nil
			if line.Text == "" {
				continue
			}
			doc.AddParagraph().AddText("• " + line.Text)
		case LineNumbered:
			open = nil
			if line.Text == "" {
				continue
			}
			number++
			doc.AddParagraph().AddText(fmt.Sprintf("%d. %s", number, line.Text))
		case LinePlain:
			if open == nil {
				open = doc.AddParagraph()
				open.AddText(line.Text)
			} else {
				open.AddText(" " + line.Text)
			}
		}
	}
}

func sourcesHeading(depth search.Depth) string {
	if depth == search.DepthDeep {
		return "References"
	}
	return "Sources Cited"
}

func sourceTitle(src report.Source) string {
	if strings.TrimSpace(src.Title) == "" {
		return "Source Title Unavailable"
	}
	return src.Title
}
