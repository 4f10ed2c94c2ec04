package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/storage"
)

var (
	ErrEmptyInterest = errors.New("interest must not be blank")
	ErrEmptyNickname = errors.New("nickname must not be blank")
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached access to the single profile blob.
type Manager struct {
	store storage.KV
	clock Clock
	ttl   time.Duration
	pick  func(n int) int

	mu       sync.RWMutex
	cached   *Profile
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store storage.KV) *Manager {
	return &Manager{
		store: store,
		clock: realClock{},
		ttl:   60 * time.Second,
		pick:  rand.IntN,
	}
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store storage.KV, clock Clock, ttl time.Duration) *Manager {
	m := NewManager(store)
	m.clock = clock
	m.ttl = ttl
	return m
}

// GetProfile returns the stored profile, creating and persisting the
// default one on first use. A blob that no longer decodes is replaced by a
// fresh default.
func (m *Manager) GetProfile() (Profile, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		p := deepCopy(m.cached)
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return deepCopy(m.cached), nil
	}

	p, err := m.loadLocked()
	if err != nil {
		return Profile{}, err
	}
	return deepCopy(&p), nil
}

// SetMood records m as the current mood.
func (m *Manager) SetMood(md mood.Mood) (Profile, error) {
	if !md.Valid() {
		return Profile{}, fmt.Errorf("invalid mood %d", int(md))
	}
	return m.update(func(p *Profile) (bool, error) {
		p.CurrentMood = md
		return true, nil
	})
}

// AddInterest appends a trimmed tag. A tag already present (case-sensitive)
// leaves the profile unchanged and reports added=false.
func (m *Manager) AddInterest(tag string) (p Profile, added bool, err error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Profile{}, false, ErrEmptyInterest
	}
	p, err = m.update(func(p *Profile) (bool, error) {
		if slices.Contains(p.Interests, tag) {
			return false, nil
		}
		p.Interests = append(p.Interests, tag)
		added = true
		return true, nil
	})
	return p, added, err
}

// RemoveInterest drops tag if present.
func (m *Manager) RemoveInterest(tag string) (Profile, error) {
	return m.update(func(p *Profile) (bool, error) {
		i := slices.Index(p.Interests, tag)
		if i < 0 {
			return false, nil
		}
		p.Interests = slices.Delete(p.Interests, i, i+1)
		return true, nil
	})
}

// UpdateSettings changes nickname and avatar. A blank avatar is regenerated
// from the nickname.
func (m *Manager) UpdateSettings(nickname, avatar string) (Profile, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return Profile{}, ErrEmptyNickname
	}
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		avatar = AvatarFor(nickname)
	}
	return m.update(func(p *Profile) (bool, error) {
		p.Nickname = nickname
		p.Avatar = avatar
		return true, nil
	})
}

// update applies fn to the freshly loaded profile and persists it when fn
// reports a change. The cache is invalidated on every write.
func (m *Manager) update(fn func(p *Profile) (bool, error)) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.loadLocked()
	if err != nil {
		return Profile{}, err
	}
	changed, err := fn(&p)
	if err != nil {
		return Profile{}, err
	}
	if changed {
		m.cached = nil
		if err := storage.SetJSON(m.store, storage.KeyProfile, p); err != nil {
			return Profile{}, fmt.Errorf("saving profile: %w", err)
		}
	}
	return deepCopy(&p), nil
}

func (m *Manager) loadLocked() (Profile, error) {
	var p Profile
	found, err := storage.GetJSON(m.store, storage.KeyProfile, &p)
	switch {
	case errors.Is(err, storage.ErrCorrupt):
		slog.Warn("stored profile is unreadable, reinitializing", "error", err)
		found = false
	case err != nil:
		return Profile{}, fmt.Errorf("loading profile: %w", err)
	}

	if !found || p.ID == "" {
		p = m.newDefault()
		if err := storage.SetJSON(m.store, storage.KeyProfile, p); err != nil {
			return Profile{}, fmt.Errorf("saving default profile: %w", err)
		}
		slog.Info("created profile", "id", p.ID, "nickname", p.Nickname)
	}
	p.Interests = uniqueInterests(p.Interests)

	m.cached = &p
	m.cachedAt = m.clock.Now()
	return p, nil
}

func (m *Manager) newDefault() Profile {
	nickname := Nicknames[m.pick(len(Nicknames))]
	return Profile{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", "")[:9],
		Nickname:    nickname,
		Avatar:      AvatarFor(nickname),
		CurrentMood: mood.Neutral,
		Interests:   slices.Clone(DefaultInterests),
	}
}

func deepCopy(p *Profile) Profile {
	if p == nil {
		return Profile{}
	}
	cp := *p
	if p.Interests != nil {
		cp.Interests = make([]string, len(p.Interests))
		copy(cp.Interests, p.Interests)
	}
	return cp
}

// uniqueInterests drops repeated tags, keeping the first occurrence.
func uniqueInterests(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
