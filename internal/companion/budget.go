package companion

// defaultHistoryTokens bounds the transcript replayed with each chat turn.
// Small local models have short context windows.
const defaultHistoryTokens = 3000

// EstimateTokens gives a rough token count at four characters per token.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// fitHistory returns the longest suffix of prior whose estimated size fits
// budget. Order is preserved; the oldest turns are dropped first.
func fitHistory(prior []ChatMessage, budget int) []ChatMessage {
	start := len(prior)
	for start > 0 {
		t := EstimateTokens(prior[start-1].Text)
		if t > budget {
			break
		}
		budget -= t
		start--
	}
	return prior[start:]
}
