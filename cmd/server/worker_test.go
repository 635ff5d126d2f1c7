package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/smart-pantry/internal/adapter/storage"
	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/logger"
)

// flakyRepo fails RecordEvent until it has been called more than failures times.
type flakyRepo struct {
	*storage.SQLAdapter
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyRepo) RecordEvent(ctx context.Context, event domain.PantryEvent) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("database is locked")
	}
	return f.SQLAdapter.RecordEvent(ctx, event)
}

func newSQLite(t *testing.T) *storage.SQLAdapter {
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DialectSQLite, ":memory:", storage.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	adapter := storage.NewSQLAdapter(db, storage.DialectSQLite)
	require.NoError(t, adapter.EnsureSchema(ctx))
	return adapter
}

func event(id string) domain.PantryEvent {
	return domain.PantryEvent{
		ID:        id,
		Kind:      domain.EventItemAdded,
		ItemID:    "item-" + id,
		ItemName:  "avocados",
		Source:    domain.SourceText,
		Utterance: "3 avocados",
		CreatedAt: time.Now(),
	}
}

func TestWorkerLoop_PersistsEvents(t *testing.T) {
	repo := &flakyRepo{SQLAdapter: newSQLite(t)}
	queue := make(chan domain.PantryEvent, 10)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, queue, repo, logger.NewNoOpLogger(), time.Millisecond)
		}(i)
	}

	for _, id := range []string{"a", "b", "c", "d"} {
		queue <- event(id)
	}
	close(queue)
	wg.Wait()

	assert.Equal(t, 4, repo.calls)
}

func TestWorkerLoop_RetriesThenSucceeds(t *testing.T) {
	repo := &flakyRepo{SQLAdapter: newSQLite(t), failures: recordAttempts - 1}
	queue := make(chan domain.PantryEvent, 1)
	queue <- event("retry")
	close(queue)

	workerLoop(0, queue, repo, logger.NewTestLogger(t), time.Millisecond)

	assert.Equal(t, recordAttempts, repo.calls)
}

func TestWorkerLoop_GivesUpAndContinues(t *testing.T) {
	repo := &flakyRepo{SQLAdapter: newSQLite(t), failures: recordAttempts}
	queue := make(chan domain.PantryEvent, 2)
	queue <- event("lost")
	queue <- event("kept")
	close(queue)

	workerLoop(0, queue, repo, logger.NewTestLogger(t), time.Millisecond)

	// every attempt for the first event plus one for the second
	assert.Equal(t, recordAttempts+1, repo.calls)
}
