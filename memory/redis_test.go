package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tailored-agentic-units/studyplan/memory"
)

func newRedisStore(t *testing.T) (*memory.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return memory.NewRedisStore(client, "test:"), mr
}

func TestRedisStore_SaveListLoad(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	err := store.Save(ctx,
		memory.Entry{Key: "agents/researcher_agent", Value: []byte("use arxiv")},
		memory.Entry{Key: "agents/planner_agent", Value: []byte("three days")},
	)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mr.Set("other:key", "not ours")

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "agents/planner_agent" || keys[1] != "agents/researcher_agent" {
		t.Errorf("List() = %v", keys)
	}

	entries, err := store.Load(ctx, "agents/researcher_agent")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(entries[0].Value) != "use arxiv" {
		t.Errorf("Load() value = %q", entries[0].Value)
	}

	if got, _ := mr.Get("test:agents/planner_agent"); got != "three days" {
		t.Errorf("raw redis value = %q", got)
	}
}

func TestRedisStore_LoadMissing(t *testing.T) {
	store, _ := newRedisStore(t)

	_, err := store.Load(context.Background(), "agents/nope")
	if !errors.Is(err, memory.ErrKeyNotFound) {
		t.Errorf("Load() error = %v, want %v", err, memory.ErrKeyNotFound)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	store.Save(ctx, memory.Entry{Key: "agents/a", Value: []byte("x")})
	if err := store.Delete(ctx, "agents/a", "agents/missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if mr.Exists("test:agents/a") {
		t.Error("key still present after Delete")
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	if _, err := store.List(context.Background()); !errors.Is(err, memory.ErrLoadFailed) {
		t.Errorf("List() error = %v, want %v", err, memory.ErrLoadFailed)
	}
	if err := store.Save(context.Background(), memory.Entry{Key: "k", Value: nil}); !errors.Is(err, memory.ErrSaveFailed) {
		t.Errorf("Save() error = %v, want %v", err, memory.ErrSaveFailed)
	}
}
