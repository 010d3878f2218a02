// Package script implements deterministic Han-script conversion:
// Simplified Chinese to/from each Han-script variant named in
// language.HAN_VARIANTS, via rune-by-rune substitution and a
// "detect current script, convert to target" entry point.
package script

import (
	"strings"

	"digital.vasic.nmt/pkg/language"
)

// Script names the two Han script families this converter moves between.
type Script string

const (
	Simplified  Script = "simplified"
	Traditional Script = "traditional"
)

// simpToTrad is a representative Simplified -> Traditional character
// map covering common high-frequency Hanzi. A production deployment
// would load a much larger OpenCC-scale table from disk; the reverse
// table (tradToSimp) is built once from this map at init time.
var simpToTrad = map[rune]rune{
	'国': '國', '学': '學', '说': '說', '这': '這', '时': '時', '么': '麼',
	'们': '們', '还': '還', '会': '會', '没': '沒', '来': '來', '个': '個',
	'为': '為', '对': '對', '动': '動', '发': '發', '台': '臺', '后': '後',
	'号': '號', '华': '華', '话': '話', '机': '機', '际': '際', '见': '見',
	'开': '開', '乐': '樂', '历': '歷', '两': '兩', '满': '滿', '年': '年',
	'气': '氣', '让': '讓', '认': '認', '实': '實', '书': '書', '体': '體',
	'头': '頭', '图': '圖', '网': '網', '习': '習', '写': '寫', '现': '現',
	'线': '線', '业': '業', '医': '醫', '应': '應', '语': '語', '与': '與',
	'远': '遠', '运': '運', '张': '張', '长': '長', '种': '種', '专': '專',
	'庄': '莊', '装': '裝', '资': '資', '总': '總', '问': '問', '务': '務',
	'简': '簡', '龙': '龍', '马': '馬', '鸟': '鳥', '鱼': '魚',
}

var tradToSimp = reverse(simpToTrad)

func reverse(m map[rune]rune) map[rune]rune {
	out := make(map[rune]rune, len(m))
	for k, v := range m {
		if _, exists := out[v]; !exists {
			out[v] = k
		}
	}
	return out
}

// ToTraditional converts Simplified Chinese text to Traditional.
func ToTraditional(text string) string {
	return mapRunes(text, simpToTrad)
}

// ToSimplified converts Traditional Chinese text (or any Han variant,
// since this module treats all variants as sharing the Traditional
// character set) to Simplified.
func ToSimplified(text string) string {
	return mapRunes(text, tradToSimp)
}

func mapRunes(text string, table map[rune]rune) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if mapped, ok := table[r]; ok {
			sb.WriteRune(mapped)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// DetectScript reports which Han script a string is predominantly
// written in, by counting characters only one side of the map knows.
func DetectScript(text string) Script {
	var trad, simp int
	for _, r := range text {
		if _, ok := tradToSimp[r]; ok {
			trad++
		}
		if _, ok := simpToTrad[r]; ok {
			simp++
		}
	}
	if trad > simp {
		return Traditional
	}
	return Simplified
}

// ConvertFunc is the shape both TO_HANS and FROM_HANS entries take: a
// pure, synchronous text transform.
type ConvertFunc func(string) string

// ToHans implements TO_HANS[v] for every HAN_VARIANTS code v: every
// variant in this module shares the Traditional character set, so
// converting any of them to Simplified is the same transform.
var ToHans = map[language.Code]ConvertFunc{
	language.ChineseTraditional: ToSimplified,
	language.ChineseHongKong:    ToSimplified,
	language.ChineseTaiwan:      ToSimplified,
	language.ChineseMacau:       ToSimplified,
}

// FromHans implements FROM_HANS[v]: Simplified -> variant.
var FromHans = map[language.Code]ConvertFunc{
	language.ChineseTraditional: ToTraditional,
	language.ChineseHongKong:    ToTraditional,
	language.ChineseTaiwan:      ToTraditional,
	language.ChineseMacau:       ToTraditional,
}
