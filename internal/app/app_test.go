package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/soulsync/soulsync/internal/companion"
	"github.com/soulsync/soulsync/internal/matching"
	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/storage"
	"github.com/soulsync/soulsync/internal/wall"
)

// --- Mock companion ---

type mockCompanion struct {
	mu       sync.Mutex
	reply    string
	err      error
	prompts  []string
	chatMsgs []string
	prior    [][]companion.ChatMessage
	moods    []mood.Mood
}

func (m *mockCompanion) Complete(_ context.Context, prompt string, _ mood.Mood) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *mockCompanion) Chat(_ context.Context, message string, prior []companion.ChatMessage, md mood.Mood) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatMsgs = append(m.chatMsgs, message)
	m.prior = append(m.prior, prior)
	m.moods = append(m.moods, md)
	return m.reply, m.err
}

func newTestApp(t *testing.T, svc companion.Service) (*App, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, svc, Options{}), s
}

func TestSelectMood(t *testing.T) {
	svc := &mockCompanion{reply: "Sending you a warm hug."}
	a, _ := newTestApp(t, svc)

	if a.Tip() != companion.DefaultTip {
		t.Errorf("initial tip = %q, want default", a.Tip())
	}

	res, err := a.SelectMood(context.Background(), mood.Sad)
	if err != nil {
		t.Fatalf("SelectMood: %v", err)
	}
	if res.Profile.CurrentMood != mood.Sad {
		t.Errorf("profile mood = %v", res.Profile.CurrentMood)
	}
	if res.Tip != "Sending you a warm hug." || a.Tip() != res.Tip {
		t.Errorf("tip = %q / %q", res.Tip, a.Tip())
	}
	if len(svc.prompts) != 1 || !strings.Contains(svc.prompts[0], companion.MoodUpdateText) {
		t.Errorf("prompts = %v", svc.prompts)
	}

	h, _ := a.History()
	if len(h) != 1 || h[0].Mood != mood.Sad {
		t.Errorf("history = %+v", h)
	}
}

func TestSelectMood_CompanionFailureStillCommits(t *testing.T) {
	a, _ := newTestApp(t, &mockCompanion{err: errors.New("offline")})

	res, err := a.SelectMood(context.Background(), mood.Anxious)
	if err != nil {
		t.Fatalf("SelectMood should not fail on companion error: %v", err)
	}
	if res.Tip != companion.FallbackTip {
		t.Errorf("tip = %q, want fallback", res.Tip)
	}
	p, _ := a.Profile()
	if p.CurrentMood != mood.Anxious {
		t.Errorf("mood not committed: %v", p.CurrentMood)
	}
	h, _ := a.History()
	if len(h) != 1 {
		t.Errorf("history not committed: %+v", h)
	}
}

func TestSelectMood_EmptyTip(t *testing.T) {
	a, _ := newTestApp(t, &mockCompanion{reply: "   "})
	res, err := a.SelectMood(context.Background(), mood.Happy)
	if err != nil {
		t.Fatal(err)
	}
	if res.Tip != companion.EmptyTip {
		t.Errorf("tip = %q, want %q", res.Tip, companion.EmptyTip)
	}
}

func TestMatches(t *testing.T) {
	a, _ := newTestApp(t, &mockCompanion{})

	if _, err := a.SelectMood(context.Background(), mood.Stressed); err != nil {
		t.Fatal(err)
	}
	// Default interests are Music, Study, Coffee.
	m, err := a.Matches(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 4 {
		t.Fatalf("got %d matches, want default 4", len(m))
	}
	for i := 1; i < len(m); i++ {
		if m[i].Score > m[i-1].Score {
			t.Errorf("matches not sorted: %d > %d", m[i].Score, m[i-1].Score)
		}
	}

	all, _ := a.Matches(100)
	if len(all) != 6 {
		t.Errorf("got %d matches with large limit, want 6", len(all))
	}
}

func TestMatches_ConfiguredTopK(t *testing.T) {
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	a := New(s, &mockCompanion{}, Options{TopK: 2})

	m, err := a.Matches(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 2 {
		t.Errorf("got %d matches, want 2", len(m))
	}
}

func TestMatches_EmptyCatalog(t *testing.T) {
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	a := New(s, &mockCompanion{}, Options{Catalog: []matching.Peer{}})

	m, err := a.Matches(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(m) != 0 {
		t.Errorf("got %d matches from an empty catalog", len(m))
	}
}

func TestMatches_AllZeroScores(t *testing.T) {
	a, _ := newTestApp(t, &mockCompanion{})

	for _, tag := range []string{"Music", "Study", "Coffee"} {
		if _, err := a.RemoveInterest(tag); err != nil {
			t.Fatal(err)
		}
	}
	// Neutral with no interests: every peer scores zero and keeps catalog order.
	m, err := a.Matches(len(matching.Catalog()))
	if err != nil {
		t.Fatal(err)
	}
	catalog := matching.Catalog()
	if len(m) != len(catalog) {
		t.Fatalf("got %d matches, want %d", len(m), len(catalog))
	}
	for i, match := range m {
		if match.Score != 0 {
			t.Errorf("%s score = %d, want 0", match.Peer.Nickname, match.Score)
		}
		if match.Peer.ID != catalog[i].ID {
			t.Errorf("position %d = %s, want %s", i, match.Peer.ID, catalog[i].ID)
		}
	}
}

func TestInterestsFlowIntoMatches(t *testing.T) {
	a, _ := newTestApp(t, &mockCompanion{})

	for _, tag := range []string{"Music", "Study", "Coffee"} {
		if _, err := a.RemoveInterest(tag); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := a.AddInterest("Hiking"); err != nil {
		t.Fatal(err)
	}
	// No peer is Neutral and only Forest Deer lists Hiking.
	m, _ := a.Matches(1)
	if len(m) != 1 || len(m[0].Shared) != 1 || m[0].Shared[0] != "Hiking" {
		t.Errorf("top match = %+v", m)
	}
}

func TestPosts(t *testing.T) {
	a, _ := newTestApp(t, &mockCompanion{})

	if _, err := a.AddPost("   "); !errors.Is(err, wall.ErrEmptyPost) {
		t.Errorf("blank post error = %v", err)
	}
	p, err := a.AddPost("you are not alone")
	if err != nil {
		t.Fatal(err)
	}
	prof, _ := a.Profile()
	if p.AuthorID != prof.ID || p.AuthorNickname != prof.Nickname {
		t.Errorf("post author = %s/%s, profile = %s/%s", p.AuthorID, p.AuthorNickname, prof.ID, prof.Nickname)
	}
	if _, err := a.LikePost(p.ID); err != nil {
		t.Fatal(err)
	}
	posts, _ := a.Posts()
	if len(posts) != 1 || posts[0].Likes != 1 {
		t.Errorf("posts = %+v", posts)
	}
}

func TestDashboard(t *testing.T) {
	svc := &mockCompanion{reply: "You're steadier this week."}
	a, _ := newTestApp(t, svc)

	d, err := a.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TrendEmpty != "Start tracking your mood to see your history" {
		t.Errorf("TrendEmpty = %q", d.TrendEmpty)
	}
	if d.Tip != companion.DefaultTip {
		t.Errorf("Tip = %q", d.Tip)
	}
	if len(svc.prompts) != 0 {
		t.Error("companion should not be asked about an empty history")
	}

	a.SelectMood(context.Background(), mood.Happy)
	a.AddPost("hello")

	d, err = a.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Trend) != 1 || d.TrendEmpty != "" {
		t.Errorf("trend = %+v, empty = %q", d.Trend, d.TrendEmpty)
	}
	if d.TrendSummary != "You're steadier this week." {
		t.Errorf("TrendSummary = %q", d.TrendSummary)
	}
	if d.Display.Mood != mood.Happy {
		t.Errorf("Display = %+v", d.Display)
	}
	if len(d.Posts) != 1 || len(d.Matches) != 4 {
		t.Errorf("posts = %d, matches = %d", len(d.Posts), len(d.Matches))
	}
}

func TestDashboard_TrendFallback(t *testing.T) {
	svc := &mockCompanion{reply: "tip"}
	a, _ := newTestApp(t, svc)
	a.SelectMood(context.Background(), mood.Sad)

	svc.err = errors.New("offline")
	d, err := a.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.TrendSummary != companion.FallbackTrend {
		t.Errorf("TrendSummary = %q, want fallback", d.TrendSummary)
	}
}

func TestDashboard_StoreError(t *testing.T) {
	a, s := newTestApp(t, &mockCompanion{})
	s.Close()
	if _, err := a.Dashboard(context.Background()); err == nil {
		t.Error("expected error when store is closed")
	}
}

func TestChat_Stateless(t *testing.T) {
	svc := &mockCompanion{reply: "I'm glad you said that."}
	a, _ := newTestApp(t, svc)

	prior := []companion.ChatMessage{
		{Role: companion.RoleUser, Text: "hi"},
		{Role: companion.RoleCompanion, Text: "hello"},
	}
	msg, err := a.Chat(context.Background(), "I passed!", prior)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Text != "I'm glad you said that." {
		t.Errorf("reply = %q", msg.Text)
	}
	if len(svc.prior) != 1 || len(svc.prior[0]) != 2 {
		t.Errorf("prior forwarded = %+v", svc.prior)
	}

	if _, err := a.Chat(context.Background(), "  ", nil); !errors.Is(err, companion.ErrEmptyMessage) {
		t.Errorf("blank chat error = %v", err)
	}
}

func TestNewChatSession(t *testing.T) {
	svc := &mockCompanion{reply: "ok"}
	a, _ := newTestApp(t, svc)
	a.SelectMood(context.Background(), mood.Stressed)

	s, err := a.NewChatSession()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Send(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.moods) != 1 || svc.moods[0] != mood.Stressed {
		t.Errorf("session sent moods %v, want [Stressed]", svc.moods)
	}
}
