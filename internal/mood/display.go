package mood

// Display holds the presentation attributes of a mood.
type Display struct {
	Mood       Mood   `json:"mood"`
	Color      string `json:"color"`
	Icon       string `json:"icon"`
	Background string `json:"bg"`
	Text       string `json:"text"`
}

// displays is positional: entry i describes Mood(i).
var displays = [...]Display{
	{Mood: Happy, Color: "#fbbf24", Icon: "smile", Background: "bg-amber-50", Text: "text-amber-700"},
	{Mood: Sad, Color: "#60a5fa", Icon: "frown", Background: "bg-blue-50", Text: "text-blue-700"},
	{Mood: Stressed, Color: "#f87171", Icon: "zap", Background: "bg-red-50", Text: "text-red-700"},
	{Mood: Anxious, Color: "#a78bfa", Icon: "shield-alert", Background: "bg-purple-50", Text: "text-purple-700"},
	{Mood: Neutral, Color: "#94a3b8", Icon: "meh", Background: "bg-slate-100", Text: "text-slate-600"},
}

var _ = [1]struct{}{}[len(displays)-int(numMoods)]

// DisplayOf returns the display attributes for m. Invalid moods get the
// Neutral attributes.
func DisplayOf(m Mood) Display {
	if !m.Valid() {
		return displays[Neutral]
	}
	return displays[m]
}

// Displays returns the full table in selector order.
func Displays() []Display {
	out := make([]Display, len(displays))
	copy(out, displays[:])
	return out
}
