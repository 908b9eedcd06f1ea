package task

import (
	"context"
	"time"
)

// Store persists tasks. Transition must be a single atomic compare-and-set:
// it writes only when the stored status equals from, and reports whether it
// wrote. A missing task is reported as (false, nil).
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter ListFilter) ([]Task, error)
	Transition(ctx context.Context, id string, from, to Status, acceptedBy string, at time.Time) (bool, error)
}
