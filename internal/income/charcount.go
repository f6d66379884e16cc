package income

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Character counting must not reward markup or quote padding, so the text
// is reduced to what a reader actually sees before counting: quoted blocks
// disappear entirely (quoting someone else's words earns nothing), media
// codes disappear with their payload, remaining bracket codes lose their
// markers but keep their inner text, and raw HTML tags are dropped.
var (
	reMediaBlock = regexp.MustCompile(`(?is)\[(img|video|attachment)[^\]]*\].*?\[/(img|video|attachment)\]`)
	reMediaSolo  = regexp.MustCompile(`(?is)\[(img|video|attachment)[^\]]*\]`)
	reBracketTag = regexp.MustCompile(`(?i)\[/?[a-z0-9*@#+]+(?:=[^\]]*)?\]`)
	reHTMLTag    = regexp.MustCompile(`(?s)<[^>]+>`)
)

const quoteClose = "[/quote]"

// stripQuotes removes quote blocks innermost-first: each pass pairs the
// first close tag with the last open tag before it, so a nested outer
// quote's own text is removed along with it. A close tag without an open
// is dropped on its own; an open without a close falls through to the
// bracket-tag pass.
func stripQuotes(text string) string {
	for {
		lower := strings.ToLower(text)
		end := strings.Index(lower, quoteClose)
		if end < 0 {
			return text
		}
		start := strings.LastIndex(lower[:end], "[quote")
		if start < 0 {
			text = text[:end] + text[end+len(quoteClose):]
			continue
		}
		text = text[:start] + text[end+len(quoteClose):]
	}
}

// StripMarkup removes quote blocks, media codes, bracket markup and HTML
// tags from a post body, leaving only visible text.
func StripMarkup(text string) string {
	text = stripQuotes(text)
	text = reMediaBlock.ReplaceAllString(text, "")
	text = reMediaSolo.ReplaceAllString(text, "")
	text = reBracketTag.ReplaceAllString(text, "")
	text = reHTMLTag.ReplaceAllString(text, "")
	return text
}

// VisibleLength counts the characters a reader sees in a post body.
func VisibleLength(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(StripMarkup(text)))
}
