package service

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts and splits text into model tokens using the
// cl100k_base encoding, matching the embedding model's tokenizer.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a TokenCounter backed by the cl100k_base encoding.
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{encoding: encoding}, nil
}

// CountTokens returns the number of tokens in text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// Encode splits text into token ids.
func (tc *TokenCounter) Encode(text string) []int {
	if tc.encoding == nil {
		return nil
	}
	return tc.encoding.Encode(text, nil, nil)
}

// Decode reassembles token ids into text.
func (tc *TokenCounter) Decode(tokens []int) string {
	if tc.encoding == nil {
		return ""
	}
	return tc.encoding.Decode(tokens)
}

// TokenByteOffsets returns, for each token boundary, the byte offset into the
// original text at which that boundary falls. The returned slice has
// len(tokens)+1 entries; offsets[0] is 0 and offsets[len(tokens)] is len(text).
// cl100k_base is a byte-level encoding, so per-token byte lengths sum exactly
// to the source length.
func (tc *TokenCounter) TokenByteOffsets(tokens []int) []int {
	offsets := make([]int, len(tokens)+1)
	for i, tok := range tokens {
		offsets[i+1] = offsets[i] + len(tc.encoding.Decode([]int{tok}))
	}
	return offsets
}
