// Package tasktest holds a contract test suite shared by every task.Store
// implementation.
package tasktest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/neardoer/domain/task"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTask returns an Open task ready to be stored.
func NewTask(zip string, category task.Category, created time.Time) *task.Task {
	return &task.Task{
		ID:          uuid.NewString(),
		Title:       "Assemble shelf",
		Description: "furniture assembly needed",
		Category:    category,
		Zip:         zip,
		Status:      task.StatusOpen,
		PostedBy:    "poster-1",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// RunStoreSuite exercises the task.Store contract against stores built by
// newStore. Each subtest gets a fresh store.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) task.Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		in := NewTask("94110", task.CategoryAssembly, base)
		in.Price = "$40"
		require.NoError(t, s.Create(ctx, in))

		got, err := s.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Description, got.Description)
		assert.Equal(t, task.CategoryAssembly, got.Category)
		assert.Equal(t, "$40", got.Price)
		assert.Equal(t, "94110", got.Zip)
		assert.Equal(t, task.StatusOpen, got.Status)
		assert.Equal(t, "poster-1", got.PostedBy)
		assert.Empty(t, got.AcceptedBy)
		assert.True(t, in.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", in.CreatedAt, got.CreatedAt)
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("duplicate create is rejected", func(t *testing.T) {
		s := newStore(t)
		tk := NewTask("94110", task.CategoryAssembly, base)
		require.NoError(t, s.Create(ctx, tk))
		ok, err := s.Transition(ctx, tk.ID, task.StatusOpen, task.StatusAccepted, "helper-1", base.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		again := NewTask("10001", task.CategoryYardwork, base)
		again.ID = tk.ID
		assert.Error(t, s.Create(ctx, again))

		got, err := s.Get(ctx, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusAccepted, got.Status, "the stored task must not be reset")
		assert.Equal(t, "helper-1", got.AcceptedBy)
		assert.Equal(t, "94110", got.Zip)
	})

	t.Run("list filters newest first", func(t *testing.T) {
		s := newStore(t)
		oldest := NewTask("94110", task.CategoryAssembly, base)
		middle := NewTask("94110", task.CategoryYardwork, base.Add(time.Minute))
		newest := NewTask("94110", task.CategoryAssembly, base.Add(2*time.Minute))
		elsewhere := NewTask("10001", task.CategoryAssembly, base.Add(3*time.Minute))
		for _, tk := range []*task.Task{oldest, middle, newest, elsewhere} {
			require.NoError(t, s.Create(ctx, tk))
		}

		got, err := s.List(ctx, task.ListFilter{Zip: "94110"})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, ids(got))

		got, err = s.List(ctx, task.ListFilter{Zip: "94110", Category: task.CategoryAssembly})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, oldest.ID}, ids(got))

		got, err = s.List(ctx, task.ListFilter{Category: task.CategoryAll})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("accept then complete", func(t *testing.T) {
		s := newStore(t)
		tk := NewTask("94110", task.CategoryErrands, base)
		require.NoError(t, s.Create(ctx, tk))
		at := base.Add(time.Hour)

		ok, err := s.Transition(ctx, tk.ID, task.StatusOpen, task.StatusAccepted, "helper-1", at)
		require.NoError(t, err)
		require.True(t, ok)

		got, err := s.Get(ctx, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusAccepted, got.Status)
		assert.Equal(t, "helper-1", got.AcceptedBy)
		assert.True(t, at.Equal(got.UpdatedAt))

		accepted, err := s.List(ctx, task.ListFilter{AcceptedBy: "helper-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{tk.ID}, ids(accepted))

		ok, err = s.Transition(ctx, tk.ID, task.StatusOpen, task.StatusAccepted, "helper-2", at)
		require.NoError(t, err)
		assert.False(t, ok, "second accept must be rejected")

		ok, err = s.Transition(ctx, tk.ID, task.StatusAccepted, task.StatusCompleted, "", at.Add(time.Hour))
		require.NoError(t, err)
		require.True(t, ok)

		got, err = s.Get(ctx, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusCompleted, got.Status)
		assert.Equal(t, "helper-1", got.AcceptedBy, "completion keeps the accepter")

		ok, err = s.Transition(ctx, tk.ID, task.StatusAccepted, task.StatusCompleted, "", at)
		require.NoError(t, err)
		assert.False(t, ok, "completing twice must be rejected")
	})

	t.Run("transition on missing task is rejected", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.Transition(ctx, uuid.NewString(), task.StatusOpen, task.StatusAccepted, "helper-1", base)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent accept has one winner", func(t *testing.T) {
		s := newStore(t)
		tk := NewTask("94110", task.CategoryCleaning, base)
		require.NoError(t, s.Create(ctx, tk))

		const helpers = 8
		var wg sync.WaitGroup
		results := make([]bool, helpers)
		errs := make([]error, helpers)
		start := make(chan struct{})
		for i := range helpers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i], errs[i] = s.Transition(ctx, tk.ID, task.StatusOpen, task.StatusAccepted,
					fmt.Sprintf("helper-%d", i), base.Add(time.Minute))
			}(i)
		}
		close(start)
		wg.Wait()

		winners := 0
		winner := ""
		for i := range helpers {
			require.NoError(t, errs[i])
			if results[i] {
				winners++
				winner = fmt.Sprintf("helper-%d", i)
			}
		}
		require.Equal(t, 1, winners)

		got, err := s.Get(ctx, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusAccepted, got.Status)
		assert.Equal(t, winner, got.AcceptedBy)
	})
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
