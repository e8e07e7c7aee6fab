package render

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sageview/sageview/internal/report"
	"github.com/sageview/sageview/internal/search"
)

func sampleReport(depth search.Depth) report.Report {
	return report.Report{
		Query: "ocean thermal energy",
		Raw: "# Overview\n\nOcean thermal plants exploit temperature gradients [1].\n" +
			"They run continuously [2].\n\n* closed cycle\n* open cycle\n\n1. site survey\n2. deployment\n",
		Markup: "<h2>Overview</h2><p>Ocean thermal plants exploit temperature gradients " +
			"<sup><a href='#' class='citation-marker' data-citation-index='0' aria-label='Citation 1'>[1]</a></sup>.</p>" +
			"<ul><li>closed cycle</li><li>open cycle</li></ul>",
		Sources: []report.Source{
			{Index: 0, URL: "https://a.example/otec", Title: "OTEC Basics", Preview: "Temperature gradients between surface and deep water"},
			{Index: 1, URL: "https://b.example/power", Title: "", Preview: ""},
		},
		Depth: depth,
	}
}

func docxDocumentXML(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a zip archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open document.xml: %v", err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read document.xml: %v", err)
		}
		return string(b)
	}
	t.Fatalf("word/document.xml missing from archive")
	return ""
}

func TestDOCXShallow(t *testing.T) {
	var buf bytes.Buffer
	if err := DOCX(&buf, sampleReport(search.DepthShallow)); err != nil {
		t.Fatalf("DOCX: %v", err)
	}
	doc := docxDocumentXML(t, buf.Bytes())
	for _, want := range []string{
		"Research Report", "ocean thermal energy", "Overview",
		"Sources Cited", "[1] ", "OTEC Basics", "Source Title Unavailable",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in document body", want)
		}
	}
	// URL text only appears in the deep source list.
	if strings.Contains(doc, "https://a.example/otec") {
		t.Fatalf("did not expect source URL in shallow source list")
	}
}

func TestDOCXDeepIncludesURLs(t *testing.T) {
	var buf bytes.Buffer
	if err := DOCX(&buf, sampleReport(search.DepthDeep)); err != nil {
		t.Fatalf("DOCX: %v", err)
	}
	doc := docxDocumentXML(t, buf.Bytes())
	if !strings.Contains(doc, "References") {
		t.Fatalf("expected deep heading")
	}
	if !strings.Contains(doc, "(https://a.example/otec)") {
		t.Fatalf("expected source URL in deep source list")
	}
}

func TestDOCXNoSources(t *testing.T) {
	rep := sampleReport(search.DepthShallow)
	rep.Sources = nil
	var buf bytes.Buffer
	if err := DOCX(&buf, rep); err != nil {
		t.Fatalf("DOCX: %v", err)
	}
	if !strings.Contains(docxDocumentXML(t, buf.Bytes()), "No sources were cited.") {
		t.Fatalf("expected empty-sources notice")
	}
}

func TestDOCXJoinsContinuationLines(t *testing.T) {
	rep := sampleReport(search.DepthShallow)
	rep.Raw = "first line\nsecond line\n\nnew paragraph\n"
	var buf bytes.Buffer
	if err := DOCX(&buf, rep); err != nil {
		t.Fatalf("DOCX: %v", err)
	}
	doc := docxDocumentXML(t, buf.Bytes())
	if !strings.Contains(doc, "first line") || !strings.Contains(doc, "second line") {
		t.Fatalf("expected both continuation lines in body")
	}
}

func TestPDFShallow(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, sampleReport(search.DepthShallow)); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected PDF magic header, got %q", buf.Bytes()[:8])
	}
	if buf.Len() < 1000 {
		t.Fatalf("suspiciously small PDF: %d bytes", buf.Len())
	}
}

func TestPDFDeep(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, sampleReport(search.DepthDeep)); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected PDF magic header")
	}
}

func TestPDFEmptyMarkupAndSources(t *testing.T) {
	rep := sampleReport(search.DepthShallow)
	rep.Markup = ""
	rep.Sources = nil
	var buf bytes.Buffer
	if err := PDF(&buf, rep); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected PDF output")
	}
}
