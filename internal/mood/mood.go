package mood

import (
	"fmt"
	"strings"
)

// Mood is a self-reported emotional state. The set is closed.
type Mood int

const (
	Happy Mood = iota
	Sad
	Stressed
	Anxious
	Neutral

	numMoods
)

var labels = [...]string{
	"Happy",
	"Sad",
	"Stressed",
	"Anxious",
	"Neutral",
}

// Fails to compile if labels drifts from the enumeration.
var _ = [1]struct{}{}[len(labels)-int(numMoods)]

// All returns every mood in selector order.
func All() []Mood {
	out := make([]Mood, 0, numMoods)
	for m := Happy; m < numMoods; m++ {
		out = append(out, m)
	}
	return out
}

// Valid reports whether m is one of the declared moods.
func (m Mood) Valid() bool {
	return m >= Happy && m < numMoods
}

func (m Mood) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mood(%d)", int(m))
	}
	return labels[m]
}

// Parse resolves a label such as "Stressed". Matching ignores case and
// surrounding whitespace; anything outside the closed set is an error.
func Parse(s string) (Mood, error) {
	s = strings.TrimSpace(s)
	for i, l := range labels {
		if strings.EqualFold(l, s) {
			return Mood(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mood %q", s)
}

func (m Mood) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mood %d", int(m))
	}
	return []byte(labels[m]), nil
}

func (m *Mood) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Valence is the chart value of a mood. It carries no ordering meaning
// outside the trend chart.
func Valence(m Mood) int {
	switch m {
	case Happy:
		return 5
	case Neutral:
		return 3
	case Sad:
		return 2
	case Stressed, Anxious:
		return 1
	default:
		return 3
	}
}

// ValenceLabel names a chart value for tooltips.
func ValenceLabel(v int) string {
	switch {
	case v >= 5:
		return "Happy"
	case v >= 3:
		return "Neutral"
	case v <= 2:
		return "Challenging"
	default:
		return "Mixed"
	}
}
