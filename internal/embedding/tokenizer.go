package embedding

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	tokenCLS       = 101
	tokenSEP       = 102
	vocabSize      = 30522
	firstWordpiece = 1000 // ids below are reserved for special tokens
)

// WordTokenizer lowercases text, splits it on whitespace and punctuation and
// hashes each word into the model vocabulary. It has no vocabulary file, so
// it only approximates a real wordpiece tokenizer.
type WordTokenizer struct{}

// NewWordTokenizer returns a WordTokenizer.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{}
}

// Tokenize returns [CLS] words... [SEP] padded with zeros to maxTokens.
func (t *WordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1
	pos := 1
	for _, w := range SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = wordID(w)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = tokenSEP
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords lowercases text and splits it into words on whitespace and punctuation.
func SplitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

func wordID(w string) int64 {
	return firstWordpiece + int64(hash64(w)%uint64(vocabSize-firstWordpiece))
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
