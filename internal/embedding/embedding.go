// Package embedding implements a deterministic bag-of-words TF-IDF embedding
// used for semantic ranking of memories and conversation text.
//
// Embeddings are derived on demand from text plus a fixed default IDF table;
// they are never stored. No network calls, no model weights.
package embedding

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// ErrEmptyText is returned when tokenization yields no tokens.
var ErrEmptyText = errors.New("embedding: no tokens in text")

// Embedding maps a term to its TF-IDF weight. All weights are non-negative.
type Embedding map[string]float64

// Tokenize lowercases text, strips non-word characters, splits on
// whitespace, and drops stopwords and empties. Pure and deterministic.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, lowered)

	fields := strings.Fields(normalized)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ComputeTFIDF builds an embedding from a token list. Term frequency is
// occurrences/len(tokens); the weight is tf × idf with idf coming from the
// default table (unknown terms fall back to a constant). Returns an empty
// embedding for an empty token list.
func ComputeTFIDF(tokens []string) Embedding {
	emb := Embedding{}
	if len(tokens) == 0 {
		return emb
	}

	counts := map[string]int{}
	for _, tok := range tokens {
		counts[tok]++
	}

	n := float64(len(tokens))
	for term, count := range counts {
		tf := float64(count) / n
		emb[term] = tf * idf(term)
	}
	return emb
}

// Generate tokenizes text and computes its TF-IDF embedding. Fails with
// ErrEmptyText when tokenization yields nothing (blank or all-stopword
// input), which callers distinguish from malformed input.
func Generate(text string) (Embedding, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}
	return ComputeTFIDF(tokens), nil
}

// GenerateOrEmpty is the pipeline variant of Generate: empty text collapses
// to an empty embedding instead of an error.
func GenerateOrEmpty(text string) Embedding {
	emb, err := Generate(text)
	if err != nil {
		return Embedding{}
	}
	return emb
}

// CosineSimilarity computes cosine similarity over the union of terms.
// Returns 0 if either embedding has zero magnitude. With non-negative
// TF-IDF weights the result is in [0,1], and CosineSimilarity(v, v) == 1
// for any non-zero v.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for term, wa := range a {
		magA += wa * wa
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	for _, wb := range b {
		magB += wb * wb
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
