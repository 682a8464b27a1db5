// Package session drives capture and recall around a host's turn loop.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hpungsan/carryon/internal/continuity"
)

// Roles used in the transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SettingsFunc returns the settings in force for the next turn.
type SettingsFunc func() continuity.Settings

// Session holds one conversation's transcript, message counter and extras.
type Session struct {
	id       string
	settings SettingsFunc
	capturer *continuity.Capturer
	recaller *continuity.Recaller
	extras   *continuity.Extras

	mu         sync.Mutex
	messages   []Message
	transcript strings.Builder
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the context id. Empty ids are replaced by a random UUID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New starts a session. capturer and recaller may be nil to disable either path.
func New(settings SettingsFunc, capturer *continuity.Capturer, recaller *continuity.Recaller, opts ...Option) *Session {
	s := &Session{
		settings: settings,
		capturer: capturer,
		recaller: recaller,
		extras:   continuity.NewExtras(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	return s
}

// ID returns the context id recorded with captured state.
func (s *Session) ID() string { return s.id }

// Counter returns the number of messages so far.
func (s *Session) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Extras returns the session's working-context extras.
func (s *Session) Extras() *continuity.Extras { return s.extras }

// BeginTurn records the user message and runs recall before the prompt is
// assembled.
func (s *Session) BeginTurn(ctx context.Context, userMessage string) continuity.RecallResult {
	counter := s.append(RoleUser, userMessage)
	if s.recaller == nil {
		return continuity.RecallResult{Status: continuity.RecallDisabled}
	}
	return s.recaller.Recall(ctx, s.settings(), continuity.Turn{
		ContextID:   s.id,
		Counter:     counter,
		UserMessage: userMessage,
	}, s.extras)
}

// EndTurn records the assistant reply and dispatches capture when due.
// It never waits for the capture to finish.
func (s *Session) EndTurn(ctx context.Context, assistantMessage string) bool {
	counter := s.append(RoleAssistant, assistantMessage)
	if s.capturer == nil {
		return false
	}
	return s.capturer.OnTurnEnd(ctx, s.settings(), continuity.Turn{
		ContextID:  s.id,
		Counter:    counter,
		Transcript: s.Transcript(),
	})
}

// Transcript renders the conversation as "role: text" lines.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.String()
}

// Messages returns a copy of the transcript entries.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// PromptContext renders the extras for prompt assembly.
func (s *Session) PromptContext() string {
	return s.extras.Render()
}

// Close drops the extras and waits for in-flight captures.
func (s *Session) Close() {
	s.extras.Clear()
	if s.capturer != nil {
		s.capturer.Wait()
	}
}

func (s *Session) append(role, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Text: text})
	if s.transcript.Len() > 0 {
		s.transcript.WriteByte('\n')
	}
	s.transcript.WriteString(role)
	s.transcript.WriteString(": ")
	s.transcript.WriteString(text)
	return len(s.messages)
}
