package notebook

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer counts tokens the same way for every write and stat
type Tokenizer interface {
	Count(text string) int
}

// TokenizerFunc adapts a plain function to Tokenizer
type TokenizerFunc func(string) int

func (f TokenizerFunc) Count(text string) int { return f(text) }

var loaderOnce sync.Once

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewCL100K returns a cl100k_base tokenizer. BPE ranks are embedded, so no
// network access is needed.
func NewCL100K() (Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

// Count encodes special-token text as ordinary tokens instead of panicking
func (t *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, []string{"all"}, nil))
}
