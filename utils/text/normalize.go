package text

import "regexp"

// NormalizeForSpeech prepares generated text for synthesis: strips
// markdown and emojis, removes list markers that would be read aloud
// verbatim, and collapses whitespace.
func NormalizeForSpeech(text string) string {
	text = removeMarkdown(text)
	text = removeListMarkers(text)
	text = removeEmojis(text)
	text = replaceMultipleSpaces(text)
	text = trimWhitespace(text)
	return text
}

// Truncate cuts s to at most max runes, appending an ellipsis when the
// input is cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func removeMarkdown(text string) string {
	// This is a very basic implementation. You can expand this to cover more markdown features if needed.
	replacements := []struct {
		old string
		new string
	}{
		{"**", ""}, // bold
		{"*", ""},  // italic
		{"__", ""}, // underline
		{"~~", ""}, // strikethrough
		{"`", ""},  // inline code
		{"#", ""},  // headings
	}
	for _, r := range replacements {
		text = replaceAll(text, r.old, r.new)
	}
	return text
}

func removeListMarkers(text string) string {
	// "1. ", "2) ", "- ", "• " at line starts sound awkward when spoken.
	return listMarkerRegex.ReplaceAllString(text, "")
}

func removeEmojis(text string) string {
	// This is a very basic implementation. You can use a more comprehensive regex or library for better emoji removal.
	return removeEmojiRegex.ReplaceAllString(text, "")
}

func replaceMultipleSpaces(text string) string {
	return multipleSpacesRegex.ReplaceAllString(text, " ")
}

func trimWhitespace(text string) string {
	return trimWhitespaceRegex.ReplaceAllString(text, "")
}

func replaceAll(text, old, new string) string {
	return replaceAllRegex(old).ReplaceAllString(text, new)
}

func replaceAllRegex(old string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(old))
}

var (
	removeEmojiRegex    = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{Z}]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	trimWhitespaceRegex = regexp.MustCompile(`^\s+|\s+$`)
	listMarkerRegex     = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-•])\s+`)
)
