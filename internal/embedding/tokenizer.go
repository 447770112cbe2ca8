package embedding

import (
	"hash/fnv"
	"strings"
)

// Tokenizer produces token IDs for BERT-style models (input_ids,
// attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// bertCLS and bertSEP are the standard BERT special token IDs.
const (
	bertCLS = 101
	bertSEP = 102
)

// SimpleTokenizer splits on whitespace and hashes each word into the
// WordPiece ID range. Not a real WordPiece tokenizer; good enough to drive
// the ONNX session in development and tests.
type SimpleTokenizer struct{}

// Tokenize produces padded token IDs up to maxTokens, CLS-prefixed and
// SEP-terminated.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = bertCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = hashToken(word)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = bertSEP
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// hashToken maps a word into the vocabulary ID range, avoiding the special
// token IDs at the bottom.
func hashToken(word string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return int64(h.Sum32()%29000) + 1000
}
