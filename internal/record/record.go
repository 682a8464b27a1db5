// Package record defines the persisted session state record and the text
// helpers used to size, trim and check it.
package record

import (
	"strconv"
	"strings"
)

// Area is the metadata discriminator identifying session state records.
const Area = "session_state"

// Descriptor is the text embedded for every session state record in place of
// its body. All live records share one vector, so the fixed capture and
// recall queries score the same against each of them under any embedder.
const Descriptor = "session state continuation context"

// Metadata keys written alongside every session state record.
const (
	KeyArea         = "area"
	KeyContextID    = "context_id"
	KeyMessageCount = "message_count"
)

// Record is a persisted session state. At most one live record carries Area.
type Record struct {
	ID           string
	Text         string
	ContextID    string
	MessageCount int
}

// Metadata returns the store metadata for r.
func (r Record) Metadata() map[string]string {
	return map[string]string{
		KeyArea:         Area,
		KeyContextID:    r.ContextID,
		KeyMessageCount: strconv.Itoa(r.MessageCount),
	}
}

// FromMetadata rebuilds a Record from a stored document. ok is false when the
// metadata does not describe a session state record.
func FromMetadata(id, text string, md map[string]string) (Record, bool) {
	if md[KeyArea] != Area {
		return Record{}, false
	}
	n, _ := strconv.Atoi(md[KeyMessageCount])
	return Record{
		ID:           id,
		Text:         text,
		ContextID:    md[KeyContextID],
		MessageCount: n,
	}, true
}

// EmbeddingText returns the text to embed for a document with metadata md.
func EmbeddingText(text string, md map[string]string) string {
	if md[KeyArea] == Area {
		return Descriptor
	}
	return text
}

// Envelope wraps a summary in the stored record body.
func Envelope(contextID string, messageCount int, summary string) string {
	var b strings.Builder
	b.WriteString("# Session State\n")
	b.WriteString("Context ID: " + contextID + "\n")
	b.WriteString("Message count: " + strconv.Itoa(messageCount) + "\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n---\n")
	b.WriteString(`Say "continue" or "resume" in a new session to recall this state.`)
	return b.String()
}
