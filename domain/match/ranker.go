package match

import (
	"sort"

	"github.com/example/neardoer/domain/task"
)

// Scored pairs a task with its relevance to a query.
type Scored struct {
	Task  task.Task `json:"task"`
	Score float64   `json:"score"`
}

// Ranking is the ordered result of Rank. Fallback is true when scores are
// term-overlap counts rather than cosine similarities.
type Ranking struct {
	Results  []Scored `json:"results"`
	Fallback bool     `json:"fallback"`
}

// Ranker orders tasks by relevance. Equal scores keep input order.
type Ranker struct {
	scorer *Scorer
}

// NewRanker returns a Ranker with the default Scorer.
func NewRanker() *Ranker {
	return &Ranker{scorer: NewScorer()}
}

// Rank scores tasks against query and sorts them descending. The input slice
// is not modified.
func (r *Ranker) Rank(tasks []task.Task, query string) Ranking {
	if len(tasks) == 0 {
		return Ranking{Results: []Scored{}}
	}
	docs := make([]string, len(tasks))
	for i, t := range tasks {
		docs[i] = DocumentOf(t)
	}
	scores, fallback := r.scorer.Scores(docs, query)

	results := make([]Scored, len(tasks))
	for i, t := range tasks {
		results[i] = Scored{Task: t, Score: scores[i]}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return Ranking{Results: results, Fallback: fallback}
}
