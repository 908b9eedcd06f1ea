package matching

import (
	"context"

	"github.com/example/neardoer/domain/match"
)

// RankTasksRequest is the request for the rank-tasks service.
type RankTasksRequest struct {
	Zip      string `json:"zip"`
	Category string `json:"category,omitempty"`
	Query    string `json:"query"`
}

// RankTasksResponse lists Open tasks, most relevant first.
type RankTasksResponse struct {
	Results  []match.Scored `json:"results"`
	Fallback bool           `json:"fallback"`
	Total    int            `json:"total"`
	Cached   bool           `json:"cached"`
}

// MatchPort defines the ranking operation exposed to other modules.
type MatchPort interface {
	RankTasks(ctx context.Context, req *RankTasksRequest) (*RankTasksResponse, error)
}
