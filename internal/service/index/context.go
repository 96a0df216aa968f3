package index

import "strings"

// maxDocumentChars caps how much of each retrieved document reaches the
// generation prompt.
const maxDocumentChars = 2000

const documentDelimiter = "\n\n---\n\n"

// BuildContext concatenates the hits' document texts for the generation
// prompt. Each document is truncated to 2000 characters; documents are
// separated by a "---" divider and keep their ranking order.
func BuildContext(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}

	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		text := hit.CombinedText
		if runes := []rune(text); len(runes) > maxDocumentChars {
			text = string(runes[:maxDocumentChars])
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, documentDelimiter)
}
