package matching

import "github.com/soulsync/soulsync/internal/mood"

// Peer is a read-only catalog entry surfaced in the sync view.
type Peer struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	Mood      mood.Mood `json:"mood"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio"`
	Interests []string  `json:"interests"`
}

var catalog = []Peer{
	{
		ID:        "1",
		Nickname:  "Brave Panda",
		Mood:      mood.Stressed,
		Avatar:    "https://picsum.photos/seed/panda/200",
		Bio:       "Finals week is hitting hard. Looking for a study buddy.",
		Interests: []string{"Coding", "Coffee", "Math"},
	},
	{
		ID:        "2",
		Nickname:  "Quiet Willow",
		Mood:      mood.Sad,
		Avatar:    "https://picsum.photos/seed/willow/200",
		Bio:       "Just feeling a bit lonely today. Anyone want to talk about books?",
		Interests: []string{"Reading", "Art", "Poetry"},
	},
	{
		ID:        "3",
		Nickname:  "Solar Fox",
		Mood:      mood.Happy,
		Avatar:    "https://picsum.photos/seed/fox/200",
		Bio:       "Finished my last project! Life is good.",
		Interests: []string{"Gaming", "Music", "Fitness"},
	},
	{
		ID:        "4",
		Nickname:  "Stormy Owl",
		Mood:      mood.Anxious,
		Avatar:    "https://picsum.photos/seed/owl/200",
		Bio:       "Social anxiety is peak today, but I am trying to stay grounded.",
		Interests: []string{"Yoga", "Meditation", "Cooking"},
	},
	{
		ID:        "5",
		Nickname:  "Ocean Turtle",
		Mood:      mood.Stressed,
		Avatar:    "https://picsum.photos/seed/turtle/200",
		Bio:       "Lab reports are piling up. Send tea.",
		Interests: []string{"Chemistry", "Tea", "Coding"},
	},
	{
		ID:        "6",
		Nickname:  "Forest Deer",
		Mood:      mood.Anxious,
		Avatar:    "https://picsum.photos/seed/deer/200",
		Bio:       "Coffee and calm music. That is the vibe.",
		Interests: []string{"Music", "Coffee", "Hiking"},
	},
}

// Catalog returns a copy of the static peer catalog in catalog order.
func Catalog() []Peer {
	out := make([]Peer, len(catalog))
	for i, p := range catalog {
		cp := p
		cp.Interests = append([]string(nil), p.Interests...)
		out[i] = cp
	}
	return out
}
