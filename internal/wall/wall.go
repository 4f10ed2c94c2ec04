// Package wall is the anonymous support wall.
package wall

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/profile"
	"github.com/soulsync/soulsync/internal/storage"
)

var (
	ErrEmptyPost    = errors.New("post content must not be blank")
	ErrPostNotFound = errors.New("post not found")
)

// Post is one wall entry. Author fields are a snapshot taken at creation.
type Post struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"authorId"`
	AuthorNickname string    `json:"authorNickname"`
	Content        string    `json:"content"`
	Mood           mood.Mood `json:"mood"`
	Timestamp      time.Time `json:"timestamp"`
	Likes          int       `json:"likes"`
}

// Wall stores posts newest first under a single key.
type Wall struct {
	store storage.KV
	now   func() time.Time
	mu    sync.Mutex
}

func New(store storage.KV) *Wall {
	return &Wall{store: store, now: time.Now}
}

// Add publishes content as author. The post carries the author's mood at
// the time of posting.
func (w *Wall) Add(author profile.Profile, content string) (Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Post{}, ErrEmptyPost
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	posts, err := w.load()
	if err != nil {
		return Post{}, err
	}

	p := Post{
		ID:             uuid.NewString(),
		AuthorID:       author.ID,
		AuthorNickname: author.Nickname,
		Content:        content,
		Mood:           author.CurrentMood,
		Timestamp:      w.now().UTC(),
	}
	posts = append([]Post{p}, posts...)

	if err := storage.SetJSON(w.store, storage.KeyPosts, posts); err != nil {
		return Post{}, fmt.Errorf("saving posts: %w", err)
	}
	return p, nil
}

// Like increments the like counter of post id.
func (w *Wall) Like(id string) (Post, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	posts, err := w.load()
	if err != nil {
		return Post{}, err
	}
	for i := range posts {
		if posts[i].ID != id {
			continue
		}
		posts[i].Likes++
		if err := storage.SetJSON(w.store, storage.KeyPosts, posts); err != nil {
			return Post{}, fmt.Errorf("saving posts: %w", err)
		}
		return posts[i], nil
	}
	return Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, id)
}

// List returns all posts, newest first.
func (w *Wall) List() ([]Post, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.load()
}

func (w *Wall) load() ([]Post, error) {
	var posts []Post
	_, err := storage.GetJSON(w.store, storage.KeyPosts, &posts)
	if errors.Is(err, storage.ErrCorrupt) {
		slog.Warn("stored posts are unreadable, starting empty", "error", err)
		return []Post{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading posts: %w", err)
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}
