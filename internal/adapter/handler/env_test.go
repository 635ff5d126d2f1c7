package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/smart-pantry/internal/adapter/storage"
	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/core/interpreter"
	"github.com/rl1809/smart-pantry/internal/core/service"
	"github.com/rl1809/smart-pantry/internal/logger"
)

var fixedNow = time.Date(2026, time.January, 31, 15, 30, 0, 0, time.Local)

type testEnv struct {
	svc    *service.PantryService
	db     *storage.SQLAdapter
	cache  *storage.RedisAdapter
	redis  *miniredis.Miniredis
	server *httptest.Server
}

// setupTestEnv runs the real service on an in-memory sqlite database and a
// miniredis cache, with the event queue persisted the way cmd/server does.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := storage.Open(ctx, storage.DialectSQLite, ":memory:", storage.PoolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := storage.NewSQLAdapter(sqlDB, storage.DialectSQLite)
	require.NoError(t, db.EnsureSchema(ctx))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	cache := storage.NewRedisAdapter(rdb, storage.RedisOptions{})

	log := logger.NewNoOpLogger()
	interp := interpreter.New(interpreter.Options{Now: func() time.Time { return fixedNow }})
	svc := service.NewPantryService(db, cache, interp, log, service.Options{QueueSize: 100})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range svc.Events() {
			db.RecordEvent(context.Background(), event)
		}
	}()

	router := NewRouter(NewHTTPHandler(svc, log), NewAssistantHandler(svc, log))
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		svc.Close()
		<-done
	})

	return &testEnv{svc: svc, db: db, cache: cache, redis: mr, server: server}
}

func (e *testEnv) seed(t *testing.T, items ...domain.AddCommand) []domain.PantryItem {
	t.Helper()
	out := make([]domain.PantryItem, 0, len(items))
	for _, cmd := range items {
		item, err := e.svc.AddItem(context.Background(), cmd, domain.SourceAPI)
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

func (e *testEnv) url(path string) string {
	return e.server.URL + path
}
