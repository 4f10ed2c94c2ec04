package profile

import "github.com/soulsync/soulsync/internal/mood"

// Profile is the anonymous identity of this installation.
type Profile struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	Avatar      string    `json:"avatar,omitempty"`
	CurrentMood mood.Mood `json:"currentMood"`
	Interests   []string  `json:"interests"`
}

// Nicknames is the pool a fresh profile draws from.
var Nicknames = []string{"Brave Koala", "Calm Otter", "Swift Sparrow", "Wise Elephant", "Kind Wolf"}

// DefaultInterests seeds a fresh profile.
var DefaultInterests = []string{"Music", "Study", "Coffee"}

// AvatarFor returns the generated avatar URL for a nickname.
func AvatarFor(nickname string) string {
	return "https://api.dicebear.com/7.x/avataaars/svg?seed=" + nickname
}
