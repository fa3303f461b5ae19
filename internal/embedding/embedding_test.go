package embedding

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stopwords and case", "Phoenix is a web framework", []string{"phoenix", "web", "framework"}},
		{"punctuation stripped", "retry, then time-out!", []string{"retry", "time"}},
		{"empty", "", nil},
		{"all stopwords", "is the a of", nil},
		{"underscores kept", "memory_type is set", []string{"memory_type", "set"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestComputeTFIDF(t *testing.T) {
	emb := ComputeTFIDF([]string{"cache", "cache", "phoenix", "zzzunknown"})
	if len(emb) != 3 {
		t.Fatalf("expected 3 terms, got %d", len(emb))
	}
	// tf(cache)=0.5, idf(cache)=1.5
	if math.Abs(emb["cache"]-0.75) > 1e-9 {
		t.Errorf("cache weight = %f, want 0.75", emb["cache"])
	}
	// unknown term falls back to idf 2.0: tf=0.25 -> 0.5
	if math.Abs(emb["zzzunknown"]-0.5) > 1e-9 {
		t.Errorf("unknown-term weight = %f, want 0.5", emb["zzzunknown"])
	}
}

func TestComputeTFIDF_Empty(t *testing.T) {
	emb := ComputeTFIDF(nil)
	if len(emb) != 0 {
		t.Errorf("expected empty embedding, got %v", emb)
	}
}

func TestGenerate_EmptyText(t *testing.T) {
	_, err := Generate("")
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	_, err = Generate("the of and")
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText for all-stopword text, got %v", err)
	}
}

func TestGenerateOrEmpty(t *testing.T) {
	if emb := GenerateOrEmpty(""); len(emb) != 0 {
		t.Errorf("expected empty embedding, got %v", emb)
	}
	if emb := GenerateOrEmpty("database migration"); len(emb) != 2 {
		t.Errorf("expected 2 terms, got %v", emb)
	}
}

func TestCosineSimilarity(t *testing.T) {
	v := GenerateOrEmpty("database migration failed during deploy")

	if got := CosineSimilarity(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("self-similarity = %f, want 1.0", got)
	}
	if got := CosineSimilarity(Embedding{}, v); got != 0 {
		t.Errorf("empty similarity = %f, want 0", got)
	}
	if got := CosineSimilarity(v, Embedding{}); got != 0 {
		t.Errorf("empty similarity = %f, want 0", got)
	}

	disjoint := CosineSimilarity(
		Embedding{"cache": 1.0},
		Embedding{"grpc": 1.0},
	)
	if disjoint != 0 {
		t.Errorf("disjoint similarity = %f, want 0", disjoint)
	}

	partial := CosineSimilarity(
		Embedding{"cache": 1.0, "timeout": 1.0},
		Embedding{"cache": 1.0},
	)
	if partial <= 0 || partial >= 1 {
		t.Errorf("partial overlap similarity = %f, want in (0,1)", partial)
	}
}

func TestRankBySimilarity(t *testing.T) {
	query := GenerateOrEmpty("database connection timeout")
	items := []string{
		"the database connection timed out under load",
		"completely unrelated poetry about mountains",
		"database timeout during connection setup",
	}

	ranked := RankBySimilarity(query, items, func(s string) string { return s }, DefaultRankThreshold, 0)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(ranked))
	}
	if ranked[0].Score < ranked[1].Score {
		t.Error("results not sorted descending by score")
	}

	limited := RankBySimilarity(query, items, func(s string) string { return s }, DefaultRankThreshold, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to cap results at 1, got %d", len(limited))
	}
}

func TestRankBySimilarity_StableTies(t *testing.T) {
	query := Embedding{"cache": 1.0}
	// identical content scores identically; original order must hold
	items := []string{"cache first", "cache first"}
	ranked := RankBySimilarity(query, items, func(s string) string { return s }, 0.0, 0)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].Item != items[0] {
		t.Error("tie broke original order")
	}
}
