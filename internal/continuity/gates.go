package continuity

import "strings"

// Keywords that signal the user wants to resume earlier work. Matched as
// case-insensitive substrings, so "continue" also hits "discontinue". Phrases
// match only in this word order: "where were we" does not match "where we
// were", which is caught only when "continue" or another keyword is present.
var Keywords = []string{
	"continue",
	"resume",
	"where were we",
	"pick up",
	"last session",
	"previous session",
	"carry on",
}

// ShouldCapture reports whether a capture fires after the turn that brought
// the conversation to counter messages.
func ShouldCapture(s Settings, counter int) bool {
	return s.Enabled && counter%s.Interval() == 0 && counter >= 2
}

// WantsContinue reports whether text contains a continuation keyword.
func WantsContinue(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ShouldRecall reports whether recall runs at the start of a turn.
func ShouldRecall(s Settings, counter int, userText string, extras *Extras) bool {
	if !s.Enabled {
		return false
	}
	if counter > 1 && !WantsContinue(userText) {
		return false
	}
	return !extras.Has(ExtrasSlot)
}
