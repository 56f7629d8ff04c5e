package tui

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags start a new line in plain text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripHTML converts a product description to plain text. Catalog
// descriptions are edited in the admin panel and may be plain text or HTML;
// both come out as trimmed, non-empty lines with entities decoded.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return cleanupWhitespace(result.String())

		case html.TextToken:
			if skip == 0 {
				result.Write(tokenizer.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			switch name := string(tn); {
			case name == "script" || name == "style":
				skip++
			case blockTags[name]:
				result.WriteString("\n")
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch name := string(tn); {
			case name == "script" || name == "style":
				skip = max(0, skip-1)
			case blockTags[name]:
				result.WriteString("\n")
			}
		}
	}
}

// cleanupWhitespace keeps non-empty trimmed lines and collapses runs of
// spaces inside them.
func cleanupWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to n runes, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
