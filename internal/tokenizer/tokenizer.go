// Package tokenizer provides the token encode/decode capability the
// chunkers window over. The handle is loaded once per process and
// shared read-only; tiktoken encodings are safe for concurrent use.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts between text and token ids. Implementations must
// round-trip: Decode(Encode(s)) yields s up to whitespace fidelity of
// the underlying vocabulary.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string
}

// Tiktoken wraps a tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

var (
	loadOnce sync.Once
	loaded   *Tiktoken
	loadErr  error
)

// Load returns the process-wide cl100k_base tokenizer, initializing it
// on first call.
func Load() (*Tiktoken, error) {
	loadOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			loadErr = fmt.Errorf("load tokenizer: %w", err)
			return
		}
		loaded = &Tiktoken{enc: enc}
	})
	return loaded, loadErr
}

func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(ids []int) string {
	return t.enc.Decode(ids)
}

// Words is a whitespace tokenizer: one token per field. Deterministic
// and dependency-free, used in tests where exact token budgets matter.
// Each instance owns its own vocabulary table.
type Words struct {
	mu       sync.Mutex
	wordToID map[string]int
	idToWord []string
}

func NewWords() *Words {
	return &Words{wordToID: make(map[string]int)}
}

func (w *Words) Encode(text string) []int {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, f := range fields {
		id, ok := w.wordToID[f]
		if !ok {
			id = len(w.idToWord)
			w.wordToID[f] = id
			w.idToWord = append(w.idToWord, f)
		}
		ids[i] = id
	}
	return ids
}

func (w *Words) Decode(ids []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(w.idToWord) {
			words = append(words, w.idToWord[id])
		}
	}
	return strings.Join(words, " ")
}
