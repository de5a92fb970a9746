package embed

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Cost per token for text-embedding-3-small ($0.02 per 1M tokens).
const costPerToken = 0.00002

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens counts tokens using the cl100k_base encoding, which
// covers the text-embedding-3 family. Falls back to the 4 chars/token
// heuristic if the encoding fails to load.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// EstimateCost returns the embedding API cost in dollars for a token count.
func EstimateCost(tokens int) float64 {
	return float64(tokens) * costPerToken
}
