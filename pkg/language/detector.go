package language

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// classification is what a statistical classifier would hand back: an
// ISO-639-1 code when one exists, plus an ISO-639-3 code that may name
// a variety with no alpha-2 assignment (e.g. Cantonese/"yue").
type classification struct {
	alpha2 Code
	alpha3 string
}

// fallbackRewrite maps minority/regional ISO-639-3 codes the classifier
// may report to a related major language this engine actually routes,
// e.g. Cantonese (yue) to Traditional Chinese, plus a small set of
// closely related varieties. Unmapped alpha-3 codes fall back to "en"
// exactly as an unrecognized code would.
var fallbackRewrite = map[string]Code{
	"yue": ChineseTraditional, // Cantonese -> Traditional Chinese
	"hbs": Serbian,            // Serbo-Croatian macrolanguage -> Serbian
	"bos": Serbian,            // Bosnian -> Serbian (closest modeled variety)
	"csb": Polish,             // Kashubian -> Polish
	"rue": Ukrainian,          // Rusyn -> Ukrainian
	"lzh": ChineseTraditional, // Literary/Classical Chinese -> Traditional
}

// Detect classifies text to a canonical code: whitespace is clamped,
// empty input yields "en", and classifier failures never propagate
// (they also yield "en").
func Detect(text string) Code {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return English
	}

	c := classify(cleaned)
	if c.alpha2 != "" {
		return c.alpha2
	}
	if rewrite, ok := fallbackRewrite[c.alpha3]; ok {
		return rewrite
	}
	return English
}

// classify runs a character-frequency heuristic over the Cyrillic,
// Latin, CJK, and Arabic unicode ranges, and additionally recognizes a
// handful of Cantonese-specific characters that a real classifier would
// report as ISO-639-3 "yue" with no alpha-2 equivalent.
func classify(text string) classification {
	sample := text
	if r := []rune(sample); len(r) > 1000 {
		sample = string(r[:1000])
	}

	var cyrillic, latin, cjk, arabic int
	for _, r := range sample {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		case isCJK(r):
			cjk++
		case unicode.Is(unicode.Arabic, r):
			arabic++
		}
	}

	total := cyrillic + latin + cjk + arabic
	if total == 0 {
		return classification{alpha2: English}
	}

	if latin > 0 && cyrillic > 0 && float64(abs(cyrillic-latin))/float64(cyrillic+latin) <= 0.1 {
		return classification{alpha2: English}
	}

	switch {
	case float64(cjk)/float64(total) > 0.3:
		return classifyCJK(sample)
	case float64(arabic)/float64(total) > 0.3:
		return classification{alpha2: Arabic}
	case float64(cyrillic)/float64(total) > 0.3:
		return classifyCyrillic(sample)
	default:
		return classifyLatin(sample)
	}
}

func classifyCJK(text string) classification {
	if hasAny(text, cantoneseMarkers) {
		return classification{alpha3: "yue"}
	}

	var hiragana, katakana, hangul, han int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Hiragana, r):
			hiragana++
		case unicode.Is(unicode.Katakana, r):
			katakana++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Han, r):
			han++
		}
	}
	total := hiragana + katakana + hangul + han
	if total == 0 {
		return classification{alpha2: ChineseSimplified}
	}
	switch {
	case float64(hangul)/float64(total) > 0.3:
		return classification{alpha2: Korean}
	case (float64(hiragana)+float64(katakana))/float64(total) > 0.2:
		return classification{alpha2: Japanese}
	default:
		return classification{alpha2: ChineseSimplified}
	}
}

var cantoneseMarkers = []string{"嘅", "喺", "咗", "唔係", "佢哋"}

func classifyCyrillic(text string) classification {
	lower := strings.ToLower(text)

	var serbianChars, ukrainianChars, bulgarianChars int
	for _, r := range lower {
		switch r {
		case 'ђ', 'ћ', 'љ', 'њ', 'џ':
			serbianChars++
		case 'є', 'ї', 'ґ':
			ukrainianChars++
		case 'ъ', 'щ':
			bulgarianChars++
		}
	}

	serbianWords := count(lower, "је") + count(lower, "сам") + count(lower, "здраво")
	ukrainianWords := count(lower, "привіт") + count(lower, "дякую") + count(lower, "україн")
	bulgarianWords := count(lower, "здравей") + count(lower, "благодаря") + count(lower, "българ")

	serbianScore := serbianChars*20 + serbianWords*5
	ukrainianScore := ukrainianChars*20 + ukrainianWords*5
	bulgarianScore := bulgarianChars*25 + bulgarianWords*5

	switch {
	case serbianScore > 0 && serbianScore >= ukrainianScore && serbianScore >= bulgarianScore:
		return classification{alpha2: Serbian}
	case ukrainianScore > 0 && ukrainianScore >= bulgarianScore:
		return classification{alpha2: Ukrainian}
	case bulgarianScore > 0:
		return classification{alpha2: Bulgarian}
	default:
		return classification{alpha2: Russian}
	}
}

func classifyLatin(text string) classification {
	lower := strings.ToLower(text)

	type candidate struct {
		code  Code
		score int
	}
	candidates := []candidate{
		{Spanish, runeScore(lower, "ñ¿¡") + wordScore(lower, "hola", "gracias", "por favor")},
		{French, runeScore(lower, "âæçêëîïûÿ") + wordScore(lower, "bonjour", "merci", "s'il")},
		{German, runeScore(lower, "ß") + wordScore(lower, "hallo", "danke")},
		{Italian, wordScore(lower, "ciao", "grazie")},
		{Portuguese, runeScore(lower, "ãõ") + wordScore(lower, "olá", "obrigado")},
		{Polish, runeScore(lower, "ąćęłńśźż") + wordScore(lower, "dziękuję")},
		{Czech, runeScore(lower, "čěňřšžťď") + wordScore(lower, "děkuji")},
		{Slovak, runeScore(lower, "ĺľŕäô") + wordScore(lower, "ďakujem")},
		{Croatian, runeScore(lower, "đ") + wordScore(lower, "hvala")},
	}

	best := candidate{code: English, score: 0}
	const minScore = 5
	for _, c := range candidates {
		if c.score > best.score && c.score >= minScore {
			best = c
		}
	}
	return classification{alpha2: best.code}
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}

func hasAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func count(text, substr string) int {
	return strings.Count(text, substr)
}

func runeScore(text, runes string) int {
	n := 0
	for _, r := range text {
		if strings.ContainsRune(runes, r) {
			n++
		}
	}
	return n * 15
}

func wordScore(text string, words ...string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n * 25
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// NormalizeTag canonicalizes a BCP-47-shaped code using
// golang.org/x/text/language before the coordinator consults SUPPORTED,
// smoothing over separator and case variants (e.g. "ZH-hans" vs
// "zh-Hans") the way a statistical classifier's own input never would.
func NormalizeTag(raw string) (Code, bool) {
	if raw == "" {
		return "", false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return Code(raw), false
	}
	return Code(tag.String()), true
}
