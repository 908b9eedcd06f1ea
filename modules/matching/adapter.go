package matching

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

type matchAdapter struct {
	container mono.ServiceContainer
}

// NewMatchAdapter creates a MatchPort backed by the matching module's services.
func NewMatchAdapter(container mono.ServiceContainer) MatchPort {
	if container == nil {
		panic("match adapter requires non-nil ServiceContainer")
	}
	return &matchAdapter{container: container}
}

func (a *matchAdapter) RankTasks(ctx context.Context, req *RankTasksRequest) (*RankTasksResponse, error) {
	var resp RankTasksResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "rank-tasks", json.Marshal, json.Unmarshal, req, &resp,
	); err != nil {
		return nil, fmt.Errorf("rank-tasks service call failed: %w", err)
	}
	return &resp, nil
}
