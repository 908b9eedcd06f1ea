package matching

import (
	"context"
	"strings"

	"github.com/example/neardoer/domain/match"
	domain "github.com/example/neardoer/domain/task"
	"github.com/example/neardoer/modules/cache"
	"github.com/example/neardoer/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// CandidateLister lists tasks; task.TaskPort satisfies it.
type CandidateLister interface {
	ListTasks(ctx context.Context, req *task.ListTasksRequest) ([]domain.Task, error)
}

// ListingCache stores candidate listings; *cache.Cache satisfies it.
type ListingCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// MatchService ranks Open tasks for a helper's query.
type MatchService struct {
	tasks    CandidateLister
	listings ListingCache
	ranker   *match.Ranker
	sfGroup  singleflight.Group
	logger   types.Logger
}

// NewMatchService creates a MatchService. listings may be nil.
func NewMatchService(tasks CandidateLister, listings ListingCache, logger types.Logger) *MatchService {
	return &MatchService{
		tasks:    tasks,
		listings: listings,
		ranker:   match.NewRanker(),
		logger:   logger,
	}
}

// Rank fetches Open candidates for zip and category and orders them by
// relevance to query. cached reports whether candidates came from the cache.
func (s *MatchService) Rank(ctx context.Context, zip, category, query string) (ranking match.Ranking, cached bool, err error) {
	candidates, cached, err := s.candidates(ctx, strings.TrimSpace(zip), strings.TrimSpace(category))
	if err != nil {
		return match.Ranking{}, false, err
	}
	return s.ranker.Rank(candidates, query), cached, nil
}

func (s *MatchService) candidates(ctx context.Context, zip, category string) ([]domain.Task, bool, error) {
	key := cache.OpenTasksKey(zip, category)

	if s.listings != nil {
		var cached []domain.Task
		found, err := s.listings.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Listing cache read failed", "key", key, "error", err)
		}
		if found {
			return cached, true, nil
		}
	}

	// The shared fetch must outlive any single caller that gives up.
	fetchCtx := context.WithoutCancel(ctx)
	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		return s.tasks.ListTasks(fetchCtx, &task.ListTasksRequest{
			Status:   string(domain.StatusOpen),
			Zip:      zip,
			Category: category,
		})
	})
	if err != nil {
		return nil, false, err
	}
	tasks, _ := val.([]domain.Task)

	if s.listings != nil {
		if err := s.listings.Set(ctx, key, tasks); err != nil {
			s.logger.Warn("Listing cache write failed", "key", key, "error", err)
		}
	}
	return tasks, false, nil
}
