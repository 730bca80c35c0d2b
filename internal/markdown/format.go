// Package markdown restructures raw model output into readable article
// markdown. Models occasionally emit the whole article on one line with
// headings, lists and bold runs glued together; FormatArticle reintroduces
// the paragraph breaks.
package markdown

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	headingGlue   = regexp.MustCompile(`([^\n])(#+ )`)
	quoteGlue     = regexp.MustCompile(`([^\n])(> )`)
	boldItemGlue  = regexp.MustCompile(`([^\n])(- \*\*)`)
	plainItemGlue = regexp.MustCompile(`([^\n])(- [A-Z])`)
	ruleBefore    = regexp.MustCompile(`([^\n])(---)`)
	ruleAfter     = regexp.MustCompile(`(---)([^\n])`)
	caseGlue      = regexp.MustCompile(`([a-záéíóúñ])([A-ZÁÉÍÓÚÑ])`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
)

// FormatArticle reflows raw model output into structured markdown. The
// input is collapsed to a single line first, so any original formatting
// is discarded and rebuilt from the markdown markers.
func FormatArticle(raw string) string {
	if raw == "" {
		return ""
	}

	out := whitespaceRun.ReplaceAllString(raw, " ")

	// Break before block-level markers.
	out = headingGlue.ReplaceAllString(out, "$1\n\n$2")
	out = quoteGlue.ReplaceAllString(out, "$1\n\n$2")
	out = boldItemGlue.ReplaceAllString(out, "$1\n\n$2")
	out = plainItemGlue.ReplaceAllString(out, "$1\n\n$2")

	out = fixBoldSpacing(out)

	// Horizontal rules get their own block.
	out = ruleBefore.ReplaceAllString(out, "$1\n\n$2")
	out = ruleAfter.ReplaceAllString(out, "$1\n\n$2")

	// Words glued across sentence boundaries ("HechosLa", "VenezuelaLa").
	out = caseGlue.ReplaceAllString(out, "$1\n\n$2")

	out = blankRun.ReplaceAllString(out, "\n\n")
	return out
}

// fixBoldSpacing separates ** runs that sit flush against surrounding
// words. Punctuation stays attached, so "**Bold**:" is left alone while
// "word**Bold**" gains a paragraph break before the marker.
func fixBoldSpacing(text string) string {
	parts := strings.Split(text, "**")
	if len(parts) < 2 {
		return text
	}

	var sb strings.Builder
	for i, part := range parts {
		sb.WriteString(part)
		if i == len(parts)-1 {
			break
		}

		sep := "**"
		if i%2 == 0 {
			// Opening marker: break if glued to the preceding word.
			if r := lastRune(part); unicode.IsLetter(r) || unicode.IsDigit(r) {
				sep = "\n\n**"
			}
		} else {
			// Closing marker: break if glued to the following word.
			if r := firstRune(parts[i+1]); unicode.IsLetter(r) || unicode.IsDigit(r) {
				sep = "**\n\n"
			}
		}
		sb.WriteString(sep)
	}
	return sb.String()
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
