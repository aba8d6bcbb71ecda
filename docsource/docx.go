package docsource

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

const maxXMLDepth = 256

// extractDocx reads word/document.xml out of the .docx archive and
// walks its paragraphs. Heading styles become heading sections.
func extractDocx(path string) (string, []Section, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var sections []Section
	var title string
	var para strings.Builder
	var inParagraph bool
	var style string
	depth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxXMLDepth {
				return "", nil, fmt.Errorf("xml nesting depth exceeds %d", maxXMLDepth)
			}
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				para.Reset()
				style = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			}

		case xml.CharData:
			if inParagraph {
				para.Write(t)
			}

		case xml.EndElement:
			depth--
			if t.Name.Local != "p" || !inParagraph {
				continue
			}
			inParagraph = false
			text := strings.TrimSpace(para.String())
			if text == "" {
				continue
			}

			if level := docxHeadingLevel(style); level > 0 {
				if title == "" {
					title = text
				}
				sections = append(sections, Section{
					Title: text,
					Level: level,
					Text:  text,
					Type:  "heading",
				})
			} else {
				sections = append(sections, Section{Text: text, Type: "paragraph"})
			}
		}
	}

	return title, sections, nil
}

// docxHeadingLevel maps a paragraph style name to a heading level.
// German office templates name them "Überschrift1" etc.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "überschrift", "titre"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
