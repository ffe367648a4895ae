package report

import (
	"strconv"
	"strings"
)

// snippetLimit keeps reference previews to a single readable line.
const snippetLimit = 180

// FormatReferences renders numbered reference lines for the sources.
func FormatReferences(sources []Source) []string {
	refs := make([]string, 0, len(sources))
	for i, s := range sources {
		var b strings.Builder
		b.WriteString("[")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("] ")
		if s.Title != "" {
			b.WriteString(s.Title)
		} else {
			b.WriteString("Source")
		}
		if s.URL != "" {
			b.WriteString(" — ")
			b.WriteString(s.URL)
		}
		if snippet := trimSnippet(s.Content); snippet != "" {
			b.WriteString(" — ")
			b.WriteString(snippet)
		}
		refs = append(refs, b.String())
	}
	return refs
}

// AppendReferences attaches a References section to the report body.
// A report with no sources is returned unchanged.
func AppendReferences(body string, sources []Source) string {
	refs := FormatReferences(sources)
	if len(refs) == 0 {
		return body
	}
	return body + "\n\nReferences:\n" + strings.Join(refs, "\n")
}

func trimSnippet(content string) string {
	snippet := strings.TrimSpace(strings.ReplaceAll(content, "\n", " "))
	runes := []rune(snippet)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit-3]) + "..."
	}
	return snippet
}
