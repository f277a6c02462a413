package rag

import (
	"regexp"
	"strings"
)

// Cleaning is purely lexical and idempotent. Paragraph boundaries
// (double newlines) are preserved because the splitter depends on them.
var (
	rePageNumberLine = regexp.MustCompile(`(?m)^\s*\d{1,3}\s*$`)
	reSeparatorLine  = regexp.MustCompile(`(?m)^\s*[-–—_=]{3,}\s*$`)
	reHTMLComment    = regexp.MustCompile(`(?m)^\s*<!--.*?-->`)
	reMarkdownImage  = regexp.MustCompile(`(?m)^\s*!\[.*?\]\(.*?\)`)
	reHTTPURL        = regexp.MustCompile(`https?://\S+`)
	reWWWURL         = regexp.MustCompile(`www\.\S+`)
	reHTMLTag        = regexp.MustCompile(`<[^>]+>`)
	reNoteLine       = regexp.MustCompile(`(?m)^\s*Nota\s*:.*$`)
	reSourceLine     = regexp.MustCompile(`(?m)^\s*Fuente\s*:.*$`)
	reFigureLine     = regexp.MustCompile(`(?m)^\s*Figura\s*\d+\s*:.*$`)
	reTableLine      = regexp.MustCompile(`(?m)^\s*Tabla\s*\d+\s*:.*$`)
	reMarkdownTable  = regexp.MustCompile(`(\n\|[^\n]*\|)+`)
	reManyNewlines   = regexp.MustCompile(`\n{3,}`)
	reIntraLineSpace = regexp.MustCompile(`[ \t]+`)
	reControlChars   = regexp.MustCompile("[\x00-\x09\x0B-\x1F\x7F]")
)

// CleanText normalizes extracted document text for chunking: page
// numbers, separators, markup, URLs, footnote and figure lead-ins and
// markdown tables are dropped, whitespace is normalized per line and
// blank runs collapse to at most one empty line.
func CleanText(text string) string {
	text = rePageNumberLine.ReplaceAllString(text, "")
	text = reSeparatorLine.ReplaceAllString(text, "")
	text = reHTMLComment.ReplaceAllString(text, "")
	text = reMarkdownImage.ReplaceAllString(text, "")

	text = reHTTPURL.ReplaceAllString(text, "")
	text = reWWWURL.ReplaceAllString(text, "")
	text = reHTMLTag.ReplaceAllString(text, "")

	text = reNoteLine.ReplaceAllString(text, "")
	text = reSourceLine.ReplaceAllString(text, "")
	text = reFigureLine.ReplaceAllString(text, "")
	text = reTableLine.ReplaceAllString(text, "")

	text = reMarkdownTable.ReplaceAllString(text, "\n")

	text = reManyNewlines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.TrimSpace(reIntraLineSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	text = reControlChars.ReplaceAllString(text, "")

	// Collapsing again: line-level trimming can surface new blank runs.
	text = reManyNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
