package docsource

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path   string
		format Format
	}{
		{"angebot.pdf", FormatPDF},
		{"nachweis.docx", FormatDocx},
		{"export.html", FormatHTML},
		{"export.htm", FormatHTML},
		{"notes.md", FormatMD},
		{"notes.markdown", FormatMD},
		{"plain.txt", FormatTXT},
	}
	for _, tt := range tests {
		f, err := Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.path, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.path, f, tt.format)
		}
	}

	if _, err := Detect("file.xlsx"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExtractText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	os.WriteFile(path, []byte("Referenzprojekt  Autobahn\n\n  zertifiziert  "), 0o644)

	doc, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Format != FormatTXT {
		t.Fatalf("format: %s", doc.Format)
	}
	if !strings.Contains(doc.RawText, "Referenzprojekt Autobahn") {
		t.Fatalf("raw text: %q", doc.RawText)
	}
}

func TestExtractMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nachweis.md")
	content := `# Eignungsnachweis

Zertifiziert nach ISO 9001.

## Referenzen

Drei Projekte vergleichbarer Art.
`
	os.WriteFile(path, []byte(content), 0o644)

	doc, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Eignungsnachweis" {
		t.Errorf("title: %q", doc.Title)
	}

	headings, paragraphs := 0, 0
	for _, s := range doc.Sections {
		switch s.Type {
		case "heading":
			headings++
		case "paragraph":
			paragraphs++
		}
	}
	if headings != 2 || paragraphs != 2 {
		t.Errorf("sections: %d headings, %d paragraphs", headings, paragraphs)
	}
}

func writeDocx(t *testing.T, docXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "angebot.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, _ := w.Create("word/document.xml")
	fw.Write([]byte(docXML))
	w.Close()
	f.Close()
	return path
}

func TestExtractDocx(t *testing.T) {
	path := writeDocx(t, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Überschrift1"/></w:pPr><w:r><w:t>Angebot Los 2</w:t></w:r></w:p>
<w:p><w:r><w:t>Wir bieten wie folgt an.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Nachweise</w:t></w:r></w:p>
<w:p><w:r><w:t>Siehe Anlage 3.</w:t></w:r></w:p>
</w:body>
</w:document>`)

	doc, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Angebot Los 2" {
		t.Errorf("title: %q", doc.Title)
	}
	if len(doc.Sections) != 4 {
		t.Fatalf("sections: %d", len(doc.Sections))
	}
	if doc.Sections[0].Level != 1 || doc.Sections[2].Level != 2 {
		t.Errorf("heading levels: %d, %d", doc.Sections[0].Level, doc.Sections[2].Level)
	}
}

func TestExtractDocxXMLBomb(t *testing.T) {
	// WHAT: Deeply nested XML is rejected instead of walked.
	// WHY: Submission files are untrusted input.
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for i := 0; i < 300; i++ {
		b.WriteString("<w:p>")
	}
	b.WriteString("<w:r><w:t>deep</w:t></w:r>")
	for i := 0; i < 300; i++ {
		b.WriteString("</w:p>")
	}
	b.WriteString("</w:body></w:document>")
	path := writeDocx(t, b.String())

	_, _, err := extractDocx(path)
	if err == nil || !strings.Contains(err.Error(), "nesting depth") {
		t.Fatalf("err = %v, want nesting depth error", err)
	}
}

func TestExtractHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.html")
	html := `<!DOCTYPE html>
<html><head><title>Angebotsexport</title></head>
<body>
<h1>Leistungsverzeichnis</h1>
<p>Position 1: Erdarbeiten nach Vorgabe.</p>
<table><tr><td>Pos</td><td>Preis</td></tr><tr><td>1</td><td>400</td></tr></table>
</body></html>`
	os.WriteFile(path, []byte(html), 0o644)

	doc, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Angebotsexport" {
		t.Errorf("title: %q", doc.Title)
	}
	if !strings.Contains(doc.RawText, "Erdarbeiten") {
		t.Errorf("raw text: %q", doc.RawText)
	}
}

func TestExtractTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	os.WriteFile(path, []byte("0123456789"), 0o644)

	_, err := New(WithMaxFileSize(4)).Extract(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("err = %v", err)
	}
}

func TestPDFContentStreamText(t *testing.T) {
	// WHAT: Tj, TJ and ' operators yield their string literals; octal
	// escapes decode.
	stream := []byte("BT\n(Referenz) Tj\n0 -14 Td\n[(Nr\\056) -20 (eins)] TJ\n(Folgezeile) '\nET")
	got := textFromContentStream(stream)
	for _, want := range []string{"Referenz", "Nr.", "eins", "Folgezeile"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`oct\101`, "octA"},
		{`sp\040ace`, "sp ace"},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.in)); got != tt.want {
			t.Errorf("decode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
