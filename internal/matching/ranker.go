package matching

import (
	"sort"

	"github.com/soulsync/soulsync/internal/mood"
)

const (
	moodBonus      = 10
	interestWeight = 2

	// DefaultTopK is how many ranked peers the sync view shows.
	DefaultTopK = 4

	// EmptyMessage is shown when there is nobody to rank.
	EmptyMessage = "No matches found yet. Try adding more interests!"
)

// Requester is the read-only snapshot of the user being matched.
type Requester struct {
	Mood      mood.Mood
	Interests []string
}

// Match is one ranked catalog entry.
type Match struct {
	Peer   Peer     `json:"peer"`
	Score  int      `json:"score"`
	Shared []string `json:"shared"`
}

// Score computes the compatibility of p with r:
//
//	(10 if moods are equal) + 2 * |p.Interests ∩ r.Interests|
//
// Tags match exactly and case-sensitively. shared lists the common tags in
// the peer's order, each at most once.
func Score(r Requester, p Peer) (score int, shared []string) {
	if p.Mood == r.Mood {
		score += moodBonus
	}

	want := make(map[string]struct{}, len(r.Interests))
	for _, tag := range r.Interests {
		want[tag] = struct{}{}
	}

	shared = []string{}
	seen := make(map[string]struct{}, len(p.Interests))
	for _, tag := range p.Interests {
		if _, ok := want[tag]; !ok {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		shared = append(shared, tag)
	}

	score += interestWeight * len(shared)
	return score, shared
}

// Rank scores every peer in catalog and orders them by score, highest first.
// The sort is stable so equal scores keep catalog order. The result always
// has len(catalog) entries; neither input is modified.
func Rank(r Requester, catalog []Peer) []Match {
	matches := make([]Match, len(catalog))
	for i, p := range catalog {
		score, shared := Score(r, p)
		p.Interests = append([]string(nil), p.Interests...)
		matches[i] = Match{Peer: p, Score: score, Shared: shared}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Top returns the first k matches. k <= 0 returns all of them.
func Top(matches []Match, k int) []Match {
	if k <= 0 || k >= len(matches) {
		return matches
	}
	return matches[:k]
}
