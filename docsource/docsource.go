// Package docsource extracts text from bidder submission documents so
// criteria can be checked against what a bidder actually handed in.
//
// Supported formats:
//   - .pdf   — PDF text extraction (pdfcpu content streams)
//   - .docx  — Microsoft Word (archive/zip → word/document.xml)
//   - .html  — HTML (converted to markdown, then sectioned)
//   - .md    — Markdown (heading detection)
//   - .txt   — Plain text (whitespace normalization)
package docsource

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a submission document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatHTML Format = "html"
	FormatMD   Format = "md"
	FormatTXT  Format = "txt"
)

// Section is a structural unit of a submission document.
type Section struct {
	Title string `json:"title,omitempty"`
	Level int    `json:"level"` // heading level 1-6, 0 for body
	Text  string `json:"text"`
	Type  string `json:"type"` // heading, paragraph, page
	Page  int    `json:"page,omitempty"`
}

// Document is the extracted content of one submission file.
type Document struct {
	Path     string    `json:"path"`
	Format   Format    `json:"format"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	RawText  string    `json:"raw_text"`
}

const defaultMaxFileSize = 100 * 1024 * 1024

// Extractor reads submission files and produces Documents.
type Extractor struct {
	maxFileSize int64
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxFileSize caps the size of files the extractor will open.
func WithMaxFileSize(n int64) Option {
	return func(e *Extractor) { e.maxFileSize = n }
}

// WithLogger sets the extractor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxFileSize: defaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Detect returns the document format based on file extension.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDocx, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".md", ".markdown":
		return FormatMD, nil
	case ".txt", ".text":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("docsource: unsupported format %q", filepath.Ext(path))
	}
}

// SupportedFormats returns the extensions Extract understands.
func SupportedFormats() []string {
	return []string{"pdf", "docx", "html", "md", "txt"}
}

// Extract parses a submission file into structured sections.
func (e *Extractor) Extract(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > e.maxFileSize {
		return nil, fmt.Errorf("docsource: file too large: %d bytes (max %d)", info.Size(), e.maxFileSize)
	}

	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("extracting submission document", "path", path, "format", format)

	var title string
	var sections []Section
	switch format {
	case FormatPDF:
		title, sections, err = extractPDF(path)
	case FormatDocx:
		title, sections, err = extractDocx(path)
	case FormatHTML:
		title, sections, err = e.extractHTML(path)
	case FormatMD:
		title, sections, err = extractMarkdown(path)
	case FormatTXT:
		title, sections, err = extractText(path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", path, format, err)
	}

	return &Document{
		Path:     path,
		Format:   format,
		Title:    title,
		Sections: sections,
		RawText:  joinSections(sections),
	}, nil
}

func joinSections(sections []Section) string {
	var sb strings.Builder
	for i, s := range sections {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if s.Title != "" && s.Title != s.Text {
			sb.WriteString(s.Title)
			sb.WriteByte('\n')
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}
