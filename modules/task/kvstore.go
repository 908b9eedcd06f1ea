package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/example/neardoer/domain/task"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrContention is returned when a versioned write keeps losing to
// concurrent writers.
var ErrContention = errors.New("task update conflicted too many times")

const maxCASAttempts = 5

// KVStore keeps tasks in a NATS JetStream key-value bucket, one JSON entry
// per task id. The bucket has no conditional UPDATE on a field, so
// transitions use the entry revision as an optimistic concurrency token:
// read, check the status, then Update with the revision that was read.
type KVStore struct {
	bucket jetstream.KeyValue
}

var _ domain.Store = (*KVStore)(nil)

// NewKVStore opens or creates the named bucket.
func NewKVStore(ctx context.Context, js jetstream.JetStream, name string) (*KVStore, error) {
	bucket, err := js.KeyValue(ctx, name)
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketNotFound) {
			return nil, fmt.Errorf("failed to open bucket %s: %w", name, err)
		}
		bucket, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      name,
			Description: "Marketplace tasks by id",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
	}
	return &KVStore{bucket: bucket}, nil
}

func (s *KVStore) Create(ctx context.Context, t *domain.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if _, err := s.bucket.Create(ctx, t.ID, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("failed to store task: %w", err)
	}
	return nil
}

func (s *KVStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	t, _, err := s.load(ctx, id)
	return t, err
}

func (s *KVStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.Task, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []domain.Task{}, nil
		}
		return nil, fmt.Errorf("failed to list task keys: %w", err)
	}
	tasks := make([]domain.Task, 0, len(keys))
	for _, key := range keys {
		t, _, err := s.load(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Matches(*t) {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return domain.Newer(tasks[i], tasks[j]) })
	return tasks, nil
}

// Transition retries on revision conflicts only; a conflict means another
// writer got in first, so the status is checked again on the next read.
func (s *KVStore) Transition(ctx context.Context, id string, from, to domain.Status, acceptedBy string, at time.Time) (bool, error) {
	for range maxCASAttempts {
		t, revision, err := s.load(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if t.Status != from {
			return false, nil
		}

		t.Status = to
		if acceptedBy != "" {
			t.AcceptedBy = acceptedBy
		}
		t.UpdatedAt = at
		data, err := json.Marshal(t)
		if err != nil {
			return false, fmt.Errorf("failed to marshal task: %w", err)
		}

		_, err = s.bucket.Update(ctx, id, data, revision)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return false, fmt.Errorf("failed to update task: %w", err)
		}
	}
	return false, ErrContention
}

func (s *KVStore) load(ctx context.Context, id string) (*domain.Task, uint64, error) {
	entry, err := s.bucket.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrInvalidKey) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("failed to get task: %w", err)
	}
	var t domain.Task
	if err := json.Unmarshal(entry.Value(), &t); err != nil {
		return nil, 0, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return &t, entry.Revision(), nil
}
