// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// sentencePunct is kept by the Whitespace stage in both Latin and CJK forms.
const sentencePunct = ",.!?，。！？、"

// cjkExtraPunct is additionally allowed by the CJK stage.
const cjkExtraPunct = "：；'\"“”‘’（）【】《》"

// repeatablePunct lists the marks whose immediate repeats the CJK stage collapses.
const repeatablePunct = ",.!?，。！？"

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	tagSpan     = regexp.MustCompile(`<[^>]+>`)
	blankLines  = regexp.MustCompile(`\n\s*\n`)

	emailPattern  = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}`)
	urlPattern    = regexp.MustCompile(`(?i)(?:\b[a-z][a-z0-9+.-]*://|\bwww\.)\S*`)
	domainPattern = regexp.MustCompile(`\b(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+(?:com|org|net|edu|gov|mil|int|io|ai|dev|info|biz|cn|uk|de|fr|jp|ru)\b(?:/\S*)?`)
	phonePattern  = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)[\s.-]?|\b\d{3}[.-])\d{3}[.-]\d{4}\b`)
)

// MarkupResidue decodes HTML entities, removes <script> blocks, and strips
// any remaining tag-like spans.
func MarkupResidue(s string) string {
	s = html.UnescapeString(s)
	s = scriptBlock.ReplaceAllString(s, "")
	return tagSpan.ReplaceAllString(s, "")
}

// EncodingRepair drops invalid UTF-8 sequences and U+FFFD replacement
// characters left behind by lossy decoding.
func EncodingRepair(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
}

// Whitespace drops non-printable characters and characters outside the
// base allow-list, then collapses whitespace runs to one space and trims.
func Whitespace(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return r
		case !unicode.IsPrint(r):
			return -1
		case isWord(r), isCJK(r), strings.ContainsRune(sentencePunct, r):
			return r
		default:
			return -1
		}
	}, s)
	return collapseSpace(s)
}

// CJK applies only when s contains a CJK ideograph. It restricts s to the
// CJK-aware allow-list, collapses immediate repeats of sentence punctuation
// ("！！！" becomes "！"), and removes blank lines.
func CJK(s string) string {
	if !containsCJK(s) {
		return s
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), isWord(r), isCJK(r),
			strings.ContainsRune(sentencePunct, r), strings.ContainsRune(cjkExtraPunct, r):
			return r
		default:
			return -1
		}
	}, s)
	s = collapseRepeats(s)
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// Scrub applies NFC normalization and removes e-mail addresses, URLs,
// phone numbers and currency symbols without leaving placeholders. Digits,
// case and sentence punctuation are preserved.
func Scrub(s string) string {
	s = norm.NFC.String(s)
	s = emailPattern.ReplaceAllString(s, "")
	s = urlPattern.ReplaceAllString(s, "")
	s = domainPattern.ReplaceAllString(s, "")
	s = phonePattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	return collapseSpace(s)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

func isCJK(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}

func containsCJK(s string) bool {
	return strings.IndexFunc(s, isCJK) >= 0
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collapseRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prev := rune(-1)
	for _, r := range s {
		if r == prev && strings.ContainsRune(repeatablePunct, r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
