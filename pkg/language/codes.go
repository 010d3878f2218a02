// Package language implements the engine's language-code data model,
// short-text classification, and an optional override manifest for
// ALIASES/HAN_VARIANTS.
package language

// Code is an opaque language tag, e.g. "en" or "zh-Hans".
type Code string

const (
	English    Code = "en"
	Russian    Code = "ru"
	Serbian    Code = "sr"
	German     Code = "de"
	French     Code = "fr"
	Spanish    Code = "es"
	Italian    Code = "it"
	Portuguese Code = "pt"
	Japanese   Code = "ja"
	Korean     Code = "ko"
	Arabic     Code = "ar"
	Polish     Code = "pl"
	Ukrainian  Code = "uk"
	Czech      Code = "cs"
	Slovak     Code = "sk"
	Croatian   Code = "hr"
	Bulgarian  Code = "bg"

	// ChineseAlias is the alternate Chinese tag normalized to
	// ChineseSimplified via ALIASES.
	ChineseAlias Code = "zh"

	ChineseSimplified     Code = "zh-Hans"
	ChineseTraditional    Code = "zh-Hant"
	ChineseHongKong       Code = "zh-HK"
	ChineseTaiwan         Code = "zh-TW"
	ChineseMacau          Code = "zh-MO"
	Auto                  Code = "auto"
)

// SUPPORTED is the union of every code the system accepts, directly
// modeled or reachable only through script conversion.
var SUPPORTED = map[Code]bool{
	English: true, Russian: true, Serbian: true, German: true, French: true,
	Spanish: true, Italian: true, Portuguese: true, Japanese: true, Korean: true,
	Arabic: true, Polish: true, Ukrainian: true, Czech: true, Slovak: true,
	Croatian: true, Bulgarian: true,
	ChineseAlias: true, ChineseSimplified: true, ChineseTraditional: true,
	ChineseHongKong: true, ChineseTaiwan: true, ChineseMacau: true,
}

// ALIASES maps an alternate code to its canonical form. The base table
// carries the bare "zh" tag mapped to canonical Simplified; a YAML
// manifest (see Manifest) can extend it.
var ALIASES = map[Code]Code{
	ChineseAlias: ChineseSimplified,
}

// HAN_VARIANTS are Chinese-script codes not directly modeled: each code in
// this base table has an entry in TO_HANS (variant -> Simplified) and FROM_HANS (Simplified ->
// variant), both implemented by the script converter (C2).
var HAN_VARIANTS = map[Code]bool{
	ChineseTraditional: true,
	ChineseHongKong:    true,
	ChineseTaiwan:      true,
	ChineseMacau:       true,
}

// IsHanVariant reports whether code is a Han-script variant.
func IsHanVariant(code Code) bool {
	return HAN_VARIANTS[code]
}

// Canonicalize applies ALIASES, returning code unchanged if it has none.
func Canonicalize(code Code) Code {
	if canon, ok := ALIASES[code]; ok {
		return canon
	}
	return code
}

// IsSupported reports whether code is in SUPPORTED.
func IsSupported(code Code) bool {
	return SUPPORTED[code]
}

// All returns every supported code, aliases included, for
// GetSupportedLanguages.
func All() []Code {
	out := make([]Code, 0, len(SUPPORTED))
	for c := range SUPPORTED {
		out = append(out, c)
	}
	return out
}

// ApplyOverrides merges an override manifest's ALIASES/HAN_VARIANTS
// entries into the base tables and SUPPORTED. Used by Manifest loading
// (manifest.go) so an operator can extend routing without a rebuild.
// A code added to HAN_VARIANTS here gets no TO_HANS/FROM_HANS converter,
// so text in that code is routed as Simplified without script conversion.
func ApplyOverrides(aliases map[Code]Code, hanVariants map[Code]bool) {
	for k, v := range aliases {
		ALIASES[k] = v
		SUPPORTED[k] = true
		SUPPORTED[v] = true
	}
	for k, v := range hanVariants {
		if v {
			HAN_VARIANTS[k] = true
			SUPPORTED[k] = true
		}
	}
}
