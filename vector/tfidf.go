package vector

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// TFIDF computes one vector per text over a shared vocabulary, treating the
// given texts as the corpus. Vocabulary is built from lowercased tokens of
// length greater than 2. Vectors are L2-normalized.
func TFIDF(texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	tokenized := make([][]string, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		tokens := tokenize(text)
		tokenized[i] = tokens

		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	// Stable vocabulary ordering so identical input yields identical vectors.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(texts))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([][]float32, len(texts))
	for i, tokens := range tokenized {
		vec := make([]float32, len(terms))
		tf := make(map[int]int)
		total := 0
		for _, tok := range tokens {
			if idx, ok := vocabulary[tok]; ok {
				tf[idx]++
				total++
			}
		}
		if total > 0 {
			for idx, count := range tf {
				vec[idx] = float32(float64(count) / float64(total) * idf[idx])
			}
			normalize(vec)
		}
		vectors[i] = vec
	}
	return vectors
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
