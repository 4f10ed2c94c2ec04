// Package companion talks to the supportive AI companion.
package companion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soulsync/soulsync/internal/engine"
	"github.com/soulsync/soulsync/internal/mood"
)

// Caller-side fallback texts. The service itself never substitutes them.
const (
	FallbackTip   = "I'm here for you. Just remember you're not alone in this journey."
	EmptyTip      = "Stay strong, we're here for you."
	FallbackChat  = "I'm sorry, I'm having a little trouble connecting right now, but I'm still listening. Can you tell me more?"
	EmptyChat     = "I'm here for you."
	FallbackTrend = "Keep taking it one day at a time. Every small step counts."
	DefaultTip    = "Take a deep breath. You're doing great today."

	// MoodUpdateText is the prompt text sent when only the mood changed.
	MoodUpdateText = "I just updated my mood."
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleCompanion Role = "companion"
)

// ChatMessage is one turn of a chat session. It is never persisted.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Service produces companion text. Both calls may fail; callers pick the
// fallback.
type Service interface {
	Complete(ctx context.Context, prompt string, m mood.Mood) (string, error)
	Chat(ctx context.Context, message string, prior []ChatMessage, m mood.Mood) (string, error)
}

// EmpatheticPrompt builds the single-shot tip prompt.
func EmpatheticPrompt(text string, m mood.Mood) string {
	return fmt.Sprintf("User is feeling %s and said: %q. Respond as a supportive, empathetic university peer. "+
		"Keep it short (2-3 sentences), warm, and non-judgmental. "+
		"Do not give clinical advice, just human-to-human connection.", m, text)
}

// TrendPrompt builds the one-sentence trend summary prompt.
func TrendPrompt(history string) string {
	return fmt.Sprintf("Given this mood history over the past week: %s, "+
		"provide a one-sentence encouraging summary or observation about the trend.", history)
}

func systemInstruction(m mood.Mood) string {
	return fmt.Sprintf("You are SoulAI, a kind and deeply empathetic companion for university students. "+
		"The user is currently feeling %s. Your goal is to listen, provide comfort, and offer gentle encouragement. "+
		"Keep your tone human, warm, and supportive. Avoid clinical terminology or medical advice. "+
		"Focus on validation and emotional connection.", m)
}

// LLM is the Service backed by a chat-completion engine.
type LLM struct {
	eng     engine.Engine
	model   string
	timeout time.Duration

	// HistoryTokens caps the replayed transcript; older turns are dropped.
	HistoryTokens int
}

// NewLLM returns a Service using model on eng. A zero timeout leaves calls
// bounded only by the caller's context.
func NewLLM(eng engine.Engine, model string, timeout time.Duration) *LLM {
	return &LLM{eng: eng, model: model, timeout: timeout, HistoryTokens: defaultHistoryTokens}
}

func (l *LLM) Complete(ctx context.Context, prompt string, m mood.Mood) (string, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	out, err := l.eng.Chat(ctx, l.model, []engine.Message{
		{Role: "user", Content: prompt},
	}, &engine.Options{Temperature: 0.8, TopP: 0.9})
	if err != nil {
		return "", fmt.Errorf("companion complete: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (l *LLM) Chat(ctx context.Context, message string, prior []ChatMessage, m mood.Mood) (string, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	prior = fitHistory(prior, l.HistoryTokens-EstimateTokens(message))
	msgs := make([]engine.Message, 0, len(prior)+2)
	msgs = append(msgs, engine.Message{Role: "system", Content: systemInstruction(m)})
	for _, pm := range prior {
		role := "user"
		if pm.Role == RoleCompanion {
			role = "assistant"
		}
		msgs = append(msgs, engine.Message{Role: role, Content: pm.Text})
	}
	msgs = append(msgs, engine.Message{Role: "user", Content: message})

	out, err := l.eng.Chat(ctx, l.model, msgs, &engine.Options{Temperature: 0.9})
	if err != nil {
		return "", fmt.Errorf("companion chat: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (l *LLM) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}
