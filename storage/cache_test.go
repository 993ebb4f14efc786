package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard/domain"
)

type stubBackend struct {
	createFn   func(ctx context.Context, title, description, status string) (domain.Task, error)
	findAllFn  func(ctx context.Context, status string) ([]domain.Task, error)
	findByIDFn func(ctx context.Context, id int64) (domain.Task, error)
	updateFn   func(ctx context.Context, id int64, fields domain.TaskFields) (domain.Task, error)
	deleteFn   func(ctx context.Context, id int64) (domain.Task, error)
}

func (s *stubBackend) Create(ctx context.Context, title, description, status string) (domain.Task, error) {
	if s.createFn == nil {
		return domain.Task{}, errors.New("unexpected Create call")
	}
	return s.createFn(ctx, title, description, status)
}

func (s *stubBackend) FindAll(ctx context.Context, status string) ([]domain.Task, error) {
	if s.findAllFn == nil {
		return nil, errors.New("unexpected FindAll call")
	}
	return s.findAllFn(ctx, status)
}

func (s *stubBackend) FindByID(ctx context.Context, id int64) (domain.Task, error) {
	if s.findByIDFn == nil {
		return domain.Task{}, errors.New("unexpected FindByID call")
	}
	return s.findByIDFn(ctx, id)
}

func (s *stubBackend) Update(ctx context.Context, id int64, fields domain.TaskFields) (domain.Task, error) {
	if s.updateFn == nil {
		return domain.Task{}, errors.New("unexpected Update call")
	}
	return s.updateFn(ctx, id, fields)
}

func (s *stubBackend) Delete(ctx context.Context, id int64) (domain.Task, error) {
	if s.deleteFn == nil {
		return domain.Task{}, errors.New("unexpected Delete call")
	}
	return s.deleteFn(ctx, id)
}

func setupCacheRedis(t *testing.T) *redis.Client {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCacheFindAllMissThenHit(t *testing.T) {
	client := setupCacheRedis(t)
	ctx := context.Background()
	expected := []domain.Task{{ID: 1, Title: "buy milk", Status: domain.StatusPending}}

	var calls int
	cache := NewCache(&stubBackend{
		findAllFn: func(ctx context.Context, status string) ([]domain.Task, error) {
			calls++
			if status != domain.StatusPending {
				t.Fatalf("unexpected status filter: %q", status)
			}
			return append([]domain.Task(nil), expected...), nil
		},
	}, client, time.Minute)

	tasks, err := cache.FindAll(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "buy milk" {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}

	cached, err := cache.FindAll(ctx, domain.StatusPending)
	if err != nil {
		t.Fatalf("find cached: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected cached read to avoid backend, calls=%d", calls)
	}
	if !reflect.DeepEqual(cached[0].ID, expected[0].ID) {
		t.Fatalf("unexpected cached tasks: %#v", cached)
	}
}

func TestCacheMutationEvicts(t *testing.T) {
	client := setupCacheRedis(t)
	ctx := context.Background()

	var listCalls int
	cache := NewCache(&stubBackend{
		findAllFn: func(ctx context.Context, status string) ([]domain.Task, error) {
			listCalls++
			return []domain.Task{}, nil
		},
		createFn: func(ctx context.Context, title, description, status string) (domain.Task, error) {
			return domain.Task{ID: 9, Title: title, Status: status}, nil
		},
	}, client, time.Minute)

	if _, err := cache.FindAll(ctx, ""); err != nil {
		t.Fatalf("find all: %v", err)
	}
	if _, err := cache.FindAll(ctx, ""); err != nil {
		t.Fatalf("find all: %v", err)
	}
	if listCalls != 1 {
		t.Fatalf("expected cached second read, calls=%d", listCalls)
	}

	if _, err := cache.Create(ctx, "buy milk", "", domain.StatusPending); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := cache.FindAll(ctx, ""); err != nil {
		t.Fatalf("find all after create: %v", err)
	}
	if listCalls != 2 {
		t.Fatalf("expected eviction to force a backend read, calls=%d", listCalls)
	}
}

func TestCacheMutationErrorDoesNotEvict(t *testing.T) {
	client := setupCacheRedis(t)
	ctx := context.Background()

	var listCalls int
	storeErr := errors.New("backend down")
	cache := NewCache(&stubBackend{
		findAllFn: func(ctx context.Context, status string) ([]domain.Task, error) {
			listCalls++
			return []domain.Task{}, nil
		},
		deleteFn: func(ctx context.Context, id int64) (domain.Task, error) {
			return domain.Task{}, storeErr
		},
	}, client, time.Minute)

	if _, err := cache.FindAll(ctx, ""); err != nil {
		t.Fatalf("find all: %v", err)
	}
	if _, err := cache.Delete(ctx, 1); !errors.Is(err, storeErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if _, err := cache.FindAll(ctx, ""); err != nil {
		t.Fatalf("find all: %v", err)
	}
	if listCalls != 1 {
		t.Fatalf("failed mutation must not evict, calls=%d", listCalls)
	}
}

func TestCacheNilRedisPassthrough(t *testing.T) {
	ctx := context.Background()
	var calls int
	cache := NewCache(&stubBackend{
		findAllFn: func(ctx context.Context, status string) ([]domain.Task, error) {
			calls++
			return nil, nil
		},
	}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.FindAll(ctx, ""); err != nil {
			t.Fatalf("find all: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected passthrough without redis, calls=%d", calls)
	}
}
