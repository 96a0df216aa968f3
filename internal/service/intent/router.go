package intent

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Intent is one label from the closed routing set. Raw classifier output is
// free text and must go through ResolveIntent before it is compared.
type Intent string

const (
	StartReport       Intent = "start_report"
	CheckReportStatus Intent = "check_report_status"
	DataDrivenQuery   Intent = "data_driven_query"
	GeneralQuery      Intent = "general_query"
)

// knownIntents is ordered: containment matching walks it front to back.
var knownIntents = []Intent{
	StartReport,
	CheckReportStatus,
	DataDrivenQuery,
	GeneralQuery,
}

// fuzzyCutoff is the minimum normalized similarity for a fuzzy intent match.
const fuzzyCutoff = 0.75

// ResolveIntent maps free-form classifier output onto the closed intent set.
// Matching is containment first, then fuzzy similarity, then the
// general-query default. It never fails: unrecognized output is a
// general query, not an error.
func ResolveIntent(raw string) Intent {
	normalized := Canonicalize(raw)
	if normalized == "" {
		return GeneralQuery
	}

	for _, known := range knownIntents {
		if strings.Contains(normalized, string(known)) {
			return known
		}
	}

	best := GeneralQuery
	bestScore := fuzzyCutoff
	for _, known := range knownIntents {
		if score := similarity(normalized, string(known)); score >= bestScore {
			best = known
			bestScore = score
		}
	}
	return best
}

// Canonicalize lowers free text into snake_case: split on underscore, hyphen
// or whitespace when present, otherwise on camel-case runs.
func Canonicalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var words []string
	if strings.ContainsAny(text, "_- \t\n") {
		words = strings.FieldsFunc(text, func(r rune) bool {
			return r == '_' || r == '-' || unicode.IsSpace(r)
		})
	} else {
		words = splitCamel(text)
	}

	lowered := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		lowered = append(lowered, strings.ToLower(w))
	}
	return strings.Trim(strings.Join(lowered, "_"), "_")
}

// splitCamel tokenizes camel/Pascal-case runs: an optional upper rune
// followed by lower runes, or a run of upper runes.
func splitCamel(text string) []string {
	runes := []rune(text)
	var words []string
	i := 0
	for i < len(runes) {
		if !unicode.IsLetter(runes[i]) {
			i++
			continue
		}
		start := i
		if unicode.IsUpper(runes[i]) {
			i++
			if i < len(runes) && unicode.IsLower(runes[i]) {
				for i < len(runes) && unicode.IsLower(runes[i]) {
					i++
				}
			} else {
				for i < len(runes) && unicode.IsUpper(runes[i]) {
					// A trailing lower rune belongs to the next word.
					if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
						break
					}
					i++
				}
			}
		} else {
			for i < len(runes) && unicode.IsLower(runes[i]) {
				i++
			}
		}
		words = append(words, string(runes[start:i]))
	}
	return words
}

// similarity is 1 - levenshtein/maxLen, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
