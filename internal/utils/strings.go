package utils

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxStringLength is the default maximum length for truncated strings
	DefaultMaxStringLength = 500
)

// TruncateString shortens s to at most maxLen characters, appending a suffix
// that records the original total length so callers know data was omitted.
// If maxLen is zero or negative, [DefaultMaxStringLength] is used instead.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}

// xmlEscaper maps the five XML structural characters to their named entities.
// Carriage returns become a character reference because XML parsers fold a
// literal \r into \n. Backticks are escaped so that code fences in the text
// cannot close the block the XML is wrapped in.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
	"\r", "&#xD;",
	"`", "&#x60;",
)

// EscapeXML escapes s for use as XML character data or an attribute value.
// encoding/xml.EscapeText emits numeric references for quotes; documents
// written here use the named forms so they stay readable when opened as notes.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// FencedBlock returns the body of the first ```lang fenced block in text.
// When no fence is present the whole text is returned trimmed.
func FencedBlock(text string, lang string) string {
	opening := "```" + lang
	start := strings.Index(text, opening)
	if start < 0 {
		return strings.TrimSpace(text)
	}
	body := text[start+len(opening):]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
