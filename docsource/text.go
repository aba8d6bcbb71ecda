package docsource

import (
	"os"
	"strings"
	"unicode"
)

// extractText reads a plain text file into a single body section.
func extractText(path string) (string, []Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	text := normalizeWhitespace(string(data))
	if text == "" {
		return "", nil, nil
	}
	return firstLine(text), []Section{{Text: text, Type: "paragraph"}}, nil
}

// extractMarkdown splits a Markdown file into heading and paragraph
// sections.
func extractMarkdown(path string) (string, []Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	title, sections := sectionsFromMarkdown(string(data))
	return title, sections, nil
}

// sectionsFromMarkdown parses ATX headings and blank-line separated
// paragraphs. Shared by the markdown and HTML paths.
func sectionsFromMarkdown(src string) (string, []Section) {
	var title string
	var sections []Section
	var para strings.Builder

	flush := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if text != "" {
			sections = append(sections, Section{Text: text, Type: "paragraph"})
		}
	}

	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)

		if heading, level, ok := parseATXHeading(trimmed); ok {
			flush()
			if title == "" {
				title = heading
			}
			sections = append(sections, Section{
				Title: heading,
				Level: level,
				Text:  heading,
				Type:  "heading",
			})
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}
		if para.Len() > 0 {
			para.WriteByte(' ')
		}
		para.WriteString(trimmed)
	}
	flush()

	if title == "" && len(sections) > 0 {
		title = firstLine(sections[0].Text)
	}
	return title, sections
}

func parseATXHeading(line string) (string, int, bool) {
	if !strings.HasPrefix(line, "#") {
		return "", 0, false
	}
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level > 6 {
		level = 6
	}
	text := strings.TrimSpace(strings.Trim(line, "# "))
	if text == "" {
		return "", 0, false
	}
	return text, level, true
}

func normalizeWhitespace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
