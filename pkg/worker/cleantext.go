package worker

import (
	"strings"

	"golang.org/x/text/width"

	"digital.vasic.nmt/pkg/language"
)

const softHyphen = '­'

// cjkTerminators are the full-width sentence terminators the
// punctuation-spacing fix applies after.
var cjkTerminators = map[rune]bool{'。': true, '！': true, '？': true}

// punctuationSpacingLanguages names the sources for which the
// terminator+quote spacing fix applies.
var punctuationSpacingLanguages = map[language.Code]bool{
	language.Japanese:          true,
	language.Korean:            true,
	language.ChineseSimplified: true,
}

// Cleaned is the {before, after, cleaned} triple CleanText produces:
// before and after are the leading/trailing whitespace runs stripped
// from the source text, preserved verbatim so the worker can re-wrap
// the translated middle with them.
type Cleaned struct {
	Before  string
	After   string
	Cleaned string
}

// CleanText strips leading/trailing whitespace from text (returned
// separately for re-wrap), removes U+00AD soft hyphens from the
// remaining middle, and, when source is Japanese, Korean, Chinese, or
// any HAN_VARIANTS code, rewrites a full-width sentence terminator
// immediately followed by a straight double quote into the terminator,
// a space, and a curly left double quote.
func CleanText(text string, source language.Code) Cleaned {
	before, middle, after := splitLeadingTrailingSpace(text)

	var sb strings.Builder
	sb.Grow(len(middle))
	for _, r := range middle {
		if r == softHyphen {
			continue
		}
		sb.WriteRune(r)
	}
	cleaned := sb.String()

	if punctuationSpacingLanguages[source] || language.IsHanVariant(source) {
		cleaned = fixTerminatorQuoteSpacing(cleaned)
	}

	return Cleaned{Before: before, After: after, Cleaned: cleaned}
}

func splitLeadingTrailingSpace(text string) (before, middle, after string) {
	runes := []rune(text)
	start := 0
	for start < len(runes) && isUnicodeSpace(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && isUnicodeSpace(runes[end-1]) {
		end--
	}
	return string(runes[:start]), string(runes[start:end]), string(runes[end:])
}

// fixTerminatorQuoteSpacing rewrites `([。！？])"` into `$1 “`: a
// full-width terminator directly followed by a straight double quote
// gets a space inserted and the quote promoted to a curly left quote.
// golang.org/x/text/width confirms the terminator is in the
// fullwidth/wide class rather than matching a fixed rune set alone. A
// quote that is already curly is left untouched.
func fixTerminatorQuoteSpacing(text string) string {
	var sb strings.Builder
	sb.Grow(len(text) + 4)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		sb.WriteRune(r)
		if !cjkTerminators[r] {
			continue
		}
		kind := width.LookupRune(r).Kind()
		if kind != width.EastAsianFullwidth && kind != width.EastAsianWide {
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '"' {
			sb.WriteRune(' ')
			sb.WriteRune('“')
			i++
		}
	}
	return sb.String()
}

func isUnicodeSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', ' ', '　':
		return true
	default:
		return false
	}
}
