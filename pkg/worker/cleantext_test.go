package worker

import (
	"testing"

	"digital.vasic.nmt/pkg/language"
)

func TestCleanText_PreservesLeadingAndTrailingWhitespace(t *testing.T) {
	c := CleanText("   hello world   ", language.English)
	if c.Before != "   " || c.After != "   " {
		t.Fatalf("got before=%q after=%q, want 3-space runs on each side", c.Before, c.After)
	}
	if c.Cleaned != "hello world" {
		t.Fatalf("got cleaned=%q", c.Cleaned)
	}
}

func TestCleanText_RemovesSoftHyphen(t *testing.T) {
	c := CleanText("soft­hyphen", language.English)
	if c.Cleaned != "softhyphen" {
		t.Fatalf("got %q, want soft hyphen stripped", c.Cleaned)
	}
}

func TestCleanText_InsertsSpaceAndCurlyQuoteAfterCJKTerminator(t *testing.T) {
	c := CleanText(`他说。"你好"`, language.ChineseSimplified)
	want := "他说。 “你好\""
	if c.Cleaned != want {
		t.Fatalf("got %q, want %q", c.Cleaned, want)
	}
}

func TestCleanText_LeavesAlreadyCurlyQuoteUntouched(t *testing.T) {
	c := CleanText("他说。“你好”", language.ChineseSimplified)
	want := "他说。“你好”"
	if c.Cleaned != want {
		t.Fatalf("got %q, want %q", c.Cleaned, want)
	}
}

func TestCleanText_NoSpacingFixForNonCJKSource(t *testing.T) {
	c := CleanText(`He said."Hi"`, language.English)
	if c.Cleaned != `He said."Hi"` {
		t.Fatalf("got %q, want unchanged", c.Cleaned)
	}
}

func TestCleanText_NoLeadingTrailingWhitespace(t *testing.T) {
	c := CleanText("no padding", language.English)
	if c.Before != "" || c.After != "" {
		t.Fatalf("got before=%q after=%q, want empty", c.Before, c.After)
	}
}
