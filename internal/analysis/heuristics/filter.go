// Package heuristics applies lightweight local rules to reject gibberish or
// malformed inputs before any model call is made. Every check is pure and
// runs in a single pass over the text.
package heuristics

import (
	"strings"
	"unicode"
)

const (
	maxConsonantVowelRatio = 7
	maxNonAlphaRatio       = 0.5
)

// IsGibberish reports whether text is likely nonsensical. Any single rule
// firing is sufficient. The gate expects English text: it runs after
// translation and only on turns that are not follow-ups.
func IsGibberish(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	return countWordChars(text) < 2 ||
		allNonWord(text) ||
		hasExtremeConsonantRatio(text) ||
		hasRepeatedSequences(text) ||
		hasHighNonAlphaRatio(text)
}

func countWordChars(text string) int {
	n := 0
	for _, r := range text {
		if isWordChar(r) {
			n++
		}
	}
	return n
}

func allNonWord(text string) bool {
	for _, r := range text {
		if isWordChar(r) {
			return false
		}
	}
	return true
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// hasExtremeConsonantRatio flags text whose Latin letters are all consonants,
// or whose consonant-to-vowel ratio exceeds 7:1. At least one consonant or
// vowel respectively is required, so non-Latin scripts never trip this rule.
func hasExtremeConsonantRatio(text string) bool {
	vowels, consonants := 0, 0
	for _, r := range text {
		lower := unicode.ToLower(r)
		if lower < 'a' || lower > 'z' {
			continue
		}
		switch lower {
		case 'a', 'e', 'i', 'o', 'u':
			vowels++
		default:
			consonants++
		}
	}
	if consonants > 0 && vowels == 0 {
		return true
	}
	return vowels > 0 && float64(consonants)/float64(vowels) > maxConsonantVowelRatio
}

// hasRepeatedSequences flags a 2-4 rune unit repeated 3+ times consecutively
// ("ababab"), and keyboard mash where the whole string is one short unit
// doubled ("asdkjhasdkjh").
func hasRepeatedSequences(text string) bool {
	runes := []rune(text)
	for size := 2; size <= 4; size++ {
		for start := 0; start+3*size <= len(runes); start++ {
			unit := string(runes[start : start+size])
			if string(runes[start+size:start+2*size]) == unit &&
				string(runes[start+2*size:start+3*size]) == unit {
				return true
			}
		}
	}
	return wholeStringRepeats(runes)
}

func wholeStringRepeats(runes []rune) bool {
	n := len(runes)
	for size := 2; size <= n/2; size++ {
		if n%size != 0 {
			continue
		}
		unit := string(runes[:size])
		if strings.Repeat(unit, n/size) == string(runes) {
			return true
		}
	}
	return false
}

func hasHighNonAlphaRatio(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	nonAlpha := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			nonAlpha++
		}
	}
	return float64(nonAlpha)/float64(len(runes)) > maxNonAlphaRatio
}
