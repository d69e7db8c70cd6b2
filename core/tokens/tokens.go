// Package tokens measures text in model tokens for context-window budgeting.
package tokens

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// fallbackEncoding is used for models tiktoken does not know, which covers
// every non-OpenAI model. It is close enough for budgeting.
const fallbackEncoding = "cl100k_base"

// Counter counts the tokens in a piece of text.
type Counter interface {
	Count(text string) int
}

// Estimator approximates four characters per token. It needs no vocabulary
// and is deterministic, which makes it the counter of choice in tests.
type Estimator struct{}

// Count implements Counter.
func (Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// BPE counts tokens with a tiktoken byte-pair encoding.
type BPE struct {
	encoding *tiktoken.Tiktoken
}

// Count implements Counter.
func (b *BPE) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.encoding.Encode(text, nil, nil))
}

var (
	loaderOnce sync.Once
	cacheMu    sync.Mutex
	cache      = map[string]Counter{}
)

// ForModel returns the tokenizer for model. Vocabularies are embedded, so no
// network access happens. If no encoding can be loaded the Estimator is
// returned and a warning logged.
func ForModel(model string, logger *slog.Logger) Counter {
	if logger == nil {
		logger = slog.Default()
	}

	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if counter, ok := cache[model]; ok {
		return counter
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
	}

	var counter Counter
	if err != nil {
		logger.Warn("tokenizer unavailable, estimating", "model", model, "error", err.Error())
		counter = Estimator{}
	} else {
		counter = &BPE{encoding: encoding}
	}

	cache[model] = counter
	return counter
}
