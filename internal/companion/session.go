package companion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/soulsync/soulsync/internal/mood"
)

var (
	ErrEmptyMessage = errors.New("message must not be blank")
	ErrTurnInFlight = errors.New("a reply is already pending")
)

// Session is one chat conversation with the companion. At most one turn is
// in flight at a time; the transcript lives only as long as the session.
type Session struct {
	svc  Service
	mood mood.Mood
	now  func() time.Time

	mu       sync.Mutex
	messages []ChatMessage
	busy     bool
}

func NewSession(svc Service, m mood.Mood) *Session {
	return &Session{svc: svc, mood: m, now: time.Now}
}

// Send appends text as a user message, asks the companion for a reply and
// appends that. A failed companion call yields FallbackChat; Send only
// errors on rejected input.
func (s *Session) Send(ctx context.Context, text string) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ChatMessage{}, ErrTurnInFlight
	}
	s.busy = true
	prior := make([]ChatMessage, len(s.messages))
	copy(prior, s.messages)
	s.messages = append(s.messages, ChatMessage{Role: RoleUser, Text: text, Timestamp: s.now()})
	s.mu.Unlock()

	reply, err := s.svc.Chat(ctx, text, prior, s.mood)
	switch {
	case err != nil:
		slog.Warn("companion chat failed", "error", err)
		reply = FallbackChat
	case strings.TrimSpace(reply) == "":
		reply = EmptyChat
	}

	msg := ChatMessage{Role: RoleCompanion, Text: reply, Timestamp: s.now()}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.busy = false
	s.mu.Unlock()

	return msg, nil
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
