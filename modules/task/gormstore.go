package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/neardoer/domain/task"
	"gorm.io/gorm"
)

// taskRecord is the relational row for a task.
type taskRecord struct {
	ID          string `gorm:"primaryKey;type:text"`
	Title       string `gorm:"not null;type:text"`
	Description string `gorm:"not null;type:text"`
	Category    string `gorm:"not null;type:text;index:idx_tasks_browse,priority:3"`
	Price       string `gorm:"type:text"`
	Zip         string `gorm:"not null;type:text;index:idx_tasks_browse,priority:2"`
	Status      string `gorm:"not null;type:text;default:Open;index:idx_tasks_browse,priority:1"`
	PostedBy    string `gorm:"not null;type:text;index"`
	AcceptedBy  string `gorm:"type:text;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRecord) TableName() string {
	return "tasks"
}

func toRecord(t *domain.Task) *taskRecord {
	return &taskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    string(t.Category),
		Price:       t.Price,
		Zip:         t.Zip,
		Status:      string(t.Status),
		PostedBy:    t.PostedBy,
		AcceptedBy:  t.AcceptedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r *taskRecord) toDomain() domain.Task {
	return domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    domain.Category(r.Category),
		Price:       r.Price,
		Zip:         r.Zip,
		Status:      domain.Status(r.Status),
		PostedBy:    r.PostedBy,
		AcceptedBy:  r.AcceptedBy,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

// GormStore keeps tasks in a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

var _ domain.Store = (*GormStore)(nil)

// NewGormStore migrates the tasks table and returns a store over db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tasks: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, t *domain.Task) error {
	if err := s.db.WithContext(ctx).Create(toRecord(t)).Error; err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var rec taskRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	t := rec.toDomain()
	return &t, nil
}

func (s *GormStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	q := s.db.WithContext(ctx).Model(&taskRecord{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Zip != "" {
		q = q.Where("zip = ?", filter.Zip)
	}
	if filter.Category != "" && filter.Category != domain.CategoryAll {
		q = q.Where("category = ?", string(filter.Category))
	}
	if filter.PostedBy != "" {
		q = q.Where("posted_by = ?", filter.PostedBy)
	}
	if filter.AcceptedBy != "" {
		q = q.Where("accepted_by = ?", filter.AcceptedBy)
	}

	var recs []taskRecord
	if err := q.Order("created_at DESC").Order("id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]domain.Task, len(recs))
	for i := range recs {
		tasks[i] = recs[i].toDomain()
	}
	return tasks, nil
}

// Transition issues one conditional UPDATE; RowsAffected tells whether the
// stored status still matched from.
func (s *GormStore) Transition(ctx context.Context, id string, from, to domain.Status, acceptedBy string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": at,
	}
	if acceptedBy != "" {
		updates["accepted_by"] = acceptedBy
	}
	result := s.db.WithContext(ctx).Model(&taskRecord{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update task status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
