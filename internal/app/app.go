// Package app owns the user's collections and coordinates mood selection,
// peer matching, the wall and the companion.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/soulsync/soulsync/internal/companion"
	"github.com/soulsync/soulsync/internal/matching"
	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/moodlog"
	"github.com/soulsync/soulsync/internal/profile"
	"github.com/soulsync/soulsync/internal/storage"
	"github.com/soulsync/soulsync/internal/wall"
)

// App is the single-user application state.
type App struct {
	profiles  *profile.Manager
	history   *moodlog.History
	wall      *wall.Wall
	companion companion.Service
	topK      int
	catalog   []matching.Peer

	mu  sync.RWMutex
	tip string
}

// Options configure New.
type Options struct {
	// TopK is the default number of matches returned. Zero means
	// matching.DefaultTopK.
	TopK int

	// Catalog is the peer set matches are ranked from. Nil means
	// matching.Catalog(); an empty non-nil slice yields no matches.
	Catalog []matching.Peer
}

// New builds an App over store.
func New(store storage.KV, svc companion.Service, opts Options) *App {
	return NewWith(profile.NewManager(store), moodlog.New(store), wall.New(store), svc, opts)
}

// NewWith builds an App from pre-constructed collections (for testing).
func NewWith(pm *profile.Manager, h *moodlog.History, w *wall.Wall, svc companion.Service, opts Options) *App {
	topK := opts.TopK
	if topK <= 0 {
		topK = matching.DefaultTopK
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = matching.Catalog()
	}
	return &App{
		profiles:  pm,
		history:   h,
		wall:      w,
		companion: svc,
		topK:      topK,
		catalog:   catalog,
		tip:       companion.DefaultTip,
	}
}

// MoodResult is what a mood selection produces.
type MoodResult struct {
	Profile profile.Profile `json:"profile"`
	Entry   moodlog.Entry   `json:"entry"`
	Tip     string          `json:"tip"`
}

// SelectMood records m as the current mood, appends a history entry and asks
// the companion for a tip. The profile and history changes stand even when
// the companion fails; the tip then falls back.
func (a *App) SelectMood(ctx context.Context, m mood.Mood) (MoodResult, error) {
	p, err := a.profiles.SetMood(m)
	if err != nil {
		return MoodResult{}, err
	}
	entry, err := a.history.Record(m)
	if err != nil {
		return MoodResult{}, err
	}

	tip := a.fetchTip(ctx, companion.MoodUpdateText, m)
	a.mu.Lock()
	a.tip = tip
	a.mu.Unlock()

	return MoodResult{Profile: p, Entry: entry, Tip: tip}, nil
}

func (a *App) fetchTip(ctx context.Context, text string, m mood.Mood) string {
	out, err := a.companion.Complete(ctx, companion.EmpatheticPrompt(text, m), m)
	switch {
	case err != nil:
		slog.Warn("companion tip failed", "mood", m, "error", err)
		return companion.FallbackTip
	case strings.TrimSpace(out) == "":
		return companion.EmptyTip
	}
	return out
}

// Tip returns the latest tip, or the default one before any mood selection.
func (a *App) Tip() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tip
}

func (a *App) Profile() (profile.Profile, error) {
	return a.profiles.GetProfile()
}

func (a *App) AddInterest(tag string) (profile.Profile, bool, error) {
	return a.profiles.AddInterest(tag)
}

func (a *App) RemoveInterest(tag string) (profile.Profile, error) {
	return a.profiles.RemoveInterest(tag)
}

func (a *App) UpdateSettings(nickname, avatar string) (profile.Profile, error) {
	return a.profiles.UpdateSettings(nickname, avatar)
}

// AddPost publishes content as the current profile.
func (a *App) AddPost(content string) (wall.Post, error) {
	if strings.TrimSpace(content) == "" {
		return wall.Post{}, wall.ErrEmptyPost
	}
	p, err := a.profiles.GetProfile()
	if err != nil {
		return wall.Post{}, err
	}
	return a.wall.Add(p, content)
}

func (a *App) LikePost(id string) (wall.Post, error) {
	return a.wall.Like(id)
}

func (a *App) Posts() ([]wall.Post, error) {
	return a.wall.List()
}

func (a *App) History() ([]moodlog.Entry, error) {
	return a.history.Entries()
}

func (a *App) Trend(n int) ([]moodlog.Point, error) {
	return a.history.Trend(n)
}

// Matches ranks the peer catalog for the current profile. limit <= 0 uses
// the configured default.
func (a *App) Matches(limit int) ([]matching.Match, error) {
	p, err := a.profiles.GetProfile()
	if err != nil {
		return nil, err
	}
	return a.rank(p, limit), nil
}

func (a *App) rank(p profile.Profile, limit int) []matching.Match {
	if limit <= 0 {
		limit = a.topK
	}
	req := matching.Requester{Mood: p.CurrentMood, Interests: p.Interests}
	return matching.Top(matching.Rank(req, a.catalog), limit)
}

// Dashboard is the home view.
type Dashboard struct {
	Profile      profile.Profile  `json:"profile"`
	Display      mood.Display     `json:"display"`
	Trend        []moodlog.Point  `json:"trend"`
	TrendEmpty   string           `json:"trendEmpty,omitempty"`
	TrendSummary string           `json:"trendSummary"`
	Matches      []matching.Match `json:"matches"`
	Posts        []wall.Post      `json:"posts"`
	Tip          string           `json:"tip"`
}

// Dashboard loads the three collections concurrently and asks the companion
// for a one-line trend summary.
func (a *App) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		p       profile.Profile
		entries []moodlog.Entry
		posts   []wall.Post
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = a.profiles.GetProfile()
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = a.history.Entries()
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = a.wall.List()
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Profile: p,
		Display: mood.DisplayOf(p.CurrentMood),
		Trend:   moodlog.Trend(entries, moodlog.DefaultTrendLen),
		Matches: a.rank(p, 0),
		Posts:   posts,
		Tip:     a.Tip(),
	}
	if len(d.Trend) == 0 {
		d.TrendEmpty = moodlog.EmptyMessage
		d.TrendSummary = companion.FallbackTrend
	} else {
		d.TrendSummary = a.TrendSummary(ctx, entries)
	}
	return d, nil
}

// TrendSummary asks the companion to comment on the last week of entries.
func (a *App) TrendSummary(ctx context.Context, entries []moodlog.Entry) string {
	if len(entries) > moodlog.DefaultTrendLen {
		entries = entries[len(entries)-moodlog.DefaultTrendLen:]
	}
	p, err := a.profiles.GetProfile()
	if err != nil {
		return companion.FallbackTrend
	}
	out, err := a.companion.Complete(ctx, companion.TrendPrompt(moodlog.Describe(entries)), p.CurrentMood)
	if err != nil {
		slog.Warn("companion trend summary failed", "error", err)
		return companion.FallbackTrend
	}
	if strings.TrimSpace(out) == "" {
		return companion.FallbackTrend
	}
	return out
}

// NewChatSession starts a chat bound to the current mood.
func (a *App) NewChatSession() (*companion.Session, error) {
	p, err := a.profiles.GetProfile()
	if err != nil {
		return nil, err
	}
	return companion.NewSession(a.companion, p.CurrentMood), nil
}

// Chat runs one stateless chat turn against prior. A failed companion call
// yields the chat fallback text.
func (a *App) Chat(ctx context.Context, message string, prior []companion.ChatMessage) (companion.ChatMessage, error) {
	p, err := a.profiles.GetProfile()
	if err != nil {
		return companion.ChatMessage{}, err
	}
	s := companion.NewSession(&replayService{Service: a.companion, prior: prior}, p.CurrentMood)
	return s.Send(ctx, message)
}

// replayService prepends a caller-supplied transcript to the session's own.
type replayService struct {
	companion.Service
	prior []companion.ChatMessage
}

func (r *replayService) Chat(ctx context.Context, message string, prior []companion.ChatMessage, m mood.Mood) (string, error) {
	all := make([]companion.ChatMessage, 0, len(r.prior)+len(prior))
	all = append(all, r.prior...)
	all = append(all, prior...)
	return r.Service.Chat(ctx, message, all, m)
}
