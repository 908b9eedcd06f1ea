package matching

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/neardoer/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// MatchingModule ranks Open tasks against helper queries.
type MatchingModule struct {
	taskPort task.TaskPort
	listings ListingCache
	service  *MatchService
	logger   types.Logger
}

var (
	_ mono.Module                = (*MatchingModule)(nil)
	_ mono.ServiceProviderModule = (*MatchingModule)(nil)
	_ mono.DependentModule       = (*MatchingModule)(nil)
)

// NewModule creates a MatchingModule. listings may be nil to disable caching.
func NewModule(listings ListingCache, logger types.Logger) *MatchingModule {
	return &MatchingModule{listings: listings, logger: logger}
}

func (m *MatchingModule) Name() string {
	return "matching"
}

func (m *MatchingModule) Dependencies() []string {
	return []string{"task"}
}

func (m *MatchingModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "task" {
		m.taskPort = task.NewTaskAdapter(container)
	}
}

func (m *MatchingModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "rank-tasks", json.Unmarshal, json.Marshal, m.rankTasks,
	); err != nil {
		return fmt.Errorf("failed to register rank-tasks service: %w", err)
	}
	m.logger.Info("Registered matching services", "services", "rank-tasks")
	return nil
}

func (m *MatchingModule) Start(_ context.Context) error {
	if m.taskPort == nil {
		return fmt.Errorf("taskPort dependency not set")
	}
	m.service = NewMatchService(m.taskPort, m.listings, m.logger)
	m.logger.Info("Matching module started", "cache", m.listings != nil)
	return nil
}

func (m *MatchingModule) Stop(_ context.Context) error {
	m.logger.Info("Matching module stopped")
	return nil
}

func (m *MatchingModule) rankTasks(ctx context.Context, req RankTasksRequest, _ *mono.Msg) (RankTasksResponse, error) {
	ranking, cached, err := m.service.Rank(ctx, req.Zip, req.Category, req.Query)
	if err != nil {
		return RankTasksResponse{}, err
	}
	return RankTasksResponse{
		Results:  ranking.Results,
		Fallback: ranking.Fallback,
		Total:    len(ranking.Results),
		Cached:   cached,
	}, nil
}
