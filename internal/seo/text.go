package seo

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MaxDescriptionLength bounds derived descriptions, ellipsis included.
const MaxDescriptionLength = 160

// wordBoundaryWindow is how far back from the cut a space may be to
// truncate on it instead of mid-word.
const wordBoundaryWindow = 80

const ellipsis = "…"

// blockElements end a line when they close.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripHTML returns the text content of an HTML fragment with entities
// decoded. Line breaks and closing block elements become newlines.
func StripHTML(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was read.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); blockElements[string(name)] {
				b.WriteByte('\n')
			}
		}
	}
}

// CollapseWhitespace joins words with single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max characters including a trailing
// ellipsis, cutting at the last space when one falls within the final
// wordBoundaryWindow characters of the cut.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	ellipsisLen := utf8.RuneCountInString(ellipsis)
	if max <= ellipsisLen {
		return string([]rune(s)[:max])
	}

	cut := []rune(s)[:max-ellipsisLen]
	if i := lastSpace(cut); i >= 0 && i >= len(cut)-wordBoundaryWindow {
		cut = cut[:i]
	}
	out := strings.TrimRight(string(cut), " \t\n,;:-–—")
	return out + ellipsis
}

// Describe derives a meta description from an HTML field.
func Describe(fragment string) string {
	text := CollapseWhitespace(StripHTML(fragment))
	if text == "" {
		return ""
	}
	return Truncate(text, MaxDescriptionLength)
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
