package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens counts tokens in text with the cl100k_base encoding. The
// completion service does not report usage, so this estimate feeds the
// per-category counters on the run state. Falls back to a bytes/4 heuristic
// if the encoding cannot be loaded.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
