// Package tokenizer counts model tokens with tiktoken encodings.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// FallbackEncoding is used for models tiktoken does not know.
const FallbackEncoding = "cl100k_base"

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.Mutex
)

// Counter counts tokens for one model.
type Counter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// New returns a counter for model. Unknown models use FallbackEncoding.
func New(model string) (*Counter, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return &Counter{encoding: enc, model: model}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(FallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading %s encoding: %w", FallbackEncoding, err)
		}
	}

	encodingCache[model] = enc
	return &Counter{encoding: enc, model: model}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Model returns the model the counter was built for.
func (c *Counter) Model() string {
	return c.model
}
