// Package tfidf implements a local TF-IDF embedder. It needs no network or
// credentials: the vector space is derived from the ingested corpus, so the
// dimension is constant for the lifetime of one index and recomputed on
// every rebuild.
package tfidf

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/coldcase-labs/detective/internal/domain"
)

// Embedder vectorizes text by smoothed TF-IDF over a fixed vocabulary. An
// Embedder is immutable after construction: PrepareCorpus returns a new
// fitted instance instead of mutating the receiver, so an Embedder already
// serving queries can be read concurrently with a rebuild fitting the next
// one.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	prepared   bool
	tokens     *regexp.Regexp
	stopwords  map[string]struct{}
}

var _ domain.Embedder = (*Embedder)(nil)
var _ domain.CorpusPreparer = (*Embedder)(nil)

// New creates an unfitted TF-IDF embedder. It rejects Embed calls until a
// fitted instance is obtained via PrepareCorpus.
func New() *Embedder {
	return &Embedder{
		vocabulary: make(map[string]int),
		tokens:     regexp.MustCompile(`[\p{L}\p{N}]+(?:'\p{L}+)*`),
		stopwords:  stopwords(),
	}
}

// PrepareCorpus builds the vocabulary and IDF weights from the corpus and
// returns a new fitted Embedder. The receiver is left untouched.
func (e *Embedder) PrepareCorpus(corpus []string) (domain.Embedder, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("empty corpus: %w", domain.ErrEmbeddingUnavailable)
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("no tokens found in corpus: %w", domain.ErrEmbeddingUnavailable)
	}

	// Stable term ordering so the vector layout is deterministic.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return &Embedder{
		vocabulary: vocabulary,
		idf:        idf,
		dimension:  len(terms),
		prepared:   true,
		tokens:     e.tokens,
		stopwords:  e.stopwords,
	}, nil
}

// Dimension reports the vector dimension, 0 for an unfitted embedder.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized TF-IDF vector for one text. Unknown
// tokens are ignored; a text with no known tokens yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if !e.prepared {
		return nil, fmt.Errorf("tfidf embedder not fitted to a corpus: %w", domain.ErrEmbeddingUnavailable)
	}

	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch vectorizes texts in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokens.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := e.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of",
		"in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "it", "this", "that", "these", "those", "from",
		"into", "about", "than", "then", "so", "such", "too", "very",
		"can", "will", "just", "not", "no", "do", "did", "has", "have",
		"had", "he", "she", "they", "we", "you", "i", "his", "her",
		"their", "its", "what", "which", "who", "where", "when", "how",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
