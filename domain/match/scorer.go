package match

import (
	"math"
	"sort"
	"strings"
)

// Scorer computes TF-IDF cosine similarity between a query and a corpus,
// falling back to term overlap when every similarity is zero.
// A Scorer holds no per-call state and is safe for concurrent use.
type Scorer struct {
	stopWords map[string]struct{}
}

// NewScorer returns a Scorer using EnglishStopWords.
func NewScorer() *Scorer {
	return &Scorer{stopWords: EnglishStopWords}
}

// Scores returns one score per document, in document order, and whether the
// overlap fallback produced them.
func (s *Scorer) Scores(documents []string, query string) ([]float64, bool) {
	if len(documents) == 0 {
		return []float64{}, false
	}
	scores := make([]float64, len(documents))
	if strings.TrimSpace(query) == "" {
		return scores, false
	}

	s.similarities(documents, query, scores)
	for _, v := range scores {
		if v != 0 {
			return scores, false
		}
	}

	queryTerms := overlapTerms(query)
	for i, doc := range documents {
		shared := 0
		for term := range overlapTerms(doc) {
			if _, ok := queryTerms[term]; ok {
				shared++
			}
		}
		scores[i] = float64(shared)
	}
	return scores, true
}

type component struct {
	index  int
	weight float64
}

// vector is a sparse L2-normalized vector ordered by index.
type vector []component

func (v vector) dot(o vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].index < o[j].index:
			i++
		case v[i].index > o[j].index:
			j++
		default:
			sum += v[i].weight * o[j].weight
			i++
			j++
		}
	}
	return sum
}

// similarities fills out with cosine similarities. The query takes part in
// document frequency as one extra document.
func (s *Scorer) similarities(documents []string, query string, out []float64) {
	corpus := make([][]string, 0, len(documents)+1)
	for _, doc := range documents {
		corpus = append(corpus, Terms(doc, s.stopWords))
	}
	corpus = append(corpus, Terms(query, s.stopWords))

	df := make(map[string]int)
	for _, terms := range corpus {
		seen := make(map[string]struct{}, len(terms))
		for _, term := range terms {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return
	}

	vocabulary := make([]string, 0, len(df))
	for term := range df {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)
	index := make(map[string]int, len(vocabulary))
	idf := make([]float64, len(vocabulary))
	n := float64(len(corpus))
	for i, term := range vocabulary {
		index[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectorize := func(terms []string) vector {
		counts := make(map[int]int, len(terms))
		for _, term := range terms {
			counts[index[term]]++
		}
		v := make(vector, 0, len(counts))
		for i, c := range counts {
			v = append(v, component{index: i, weight: float64(c) * idf[i]})
		}
		sort.Slice(v, func(a, b int) bool { return v[a].index < v[b].index })
		var norm float64
		for _, c := range v {
			norm += c.weight * c.weight
		}
		if norm == 0 {
			return nil
		}
		norm = math.Sqrt(norm)
		for k := range v {
			v[k].weight /= norm
		}
		return v
	}

	q := vectorize(corpus[len(corpus)-1])
	if len(q) == 0 {
		return
	}
	for i := range documents {
		out[i] = math.Min(1, q.dot(vectorize(corpus[i])))
	}
}
