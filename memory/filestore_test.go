package memory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/studyplan/memory"
)

func writeTestFile(t *testing.T, root, key, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileStore_List(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "agents/researcher_agent", "find papers")
	writeTestFile(t, root, "agents/planner_agent", "plan five days")
	writeTestFile(t, root, ".hidden/ignored", "x")
	writeTestFile(t, root, "agents/.swp", "x")

	keys, err := memory.NewFileStore(root).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"agents/planner_agent", "agents/researcher_agent"}
	if len(keys) != len(want) {
		t.Fatalf("List() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestFileStore_List_MissingRoot(t *testing.T) {
	store := memory.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	keys, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() returned %d keys, want 0", len(keys))
	}
}

func TestFileStore_SaveLoadDelete(t *testing.T) {
	root := t.TempDir()
	store := memory.NewFileStore(root)
	ctx := context.Background()

	key := memory.AgentKey("academic_agent")
	if err := store.Save(ctx, memory.Entry{Key: key, Value: []byte("translate to Spanish")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := store.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 1 || string(entries[0].Value) != "translate to Spanish" {
		t.Errorf("Load() = %+v", entries)
	}

	if err := store.Delete(ctx, key, "agents/missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, key); !errors.Is(err, memory.ErrKeyNotFound) {
		t.Errorf("Load() after Delete error = %v, want %v", err, memory.ErrKeyNotFound)
	}
	if _, err := os.Stat(filepath.Join(root, "agents")); !os.IsNotExist(err) {
		t.Error("empty agents directory was not pruned")
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root removed: %v", err)
	}
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "/etc/passwd", "../outside", "agents/../../x", "agents//x"} {
		t.Run(key, func(t *testing.T) {
			err := store.Save(ctx, memory.Entry{Key: key, Value: []byte("x")})
			if !errors.Is(err, memory.ErrInvalidKey) {
				t.Errorf("Save(%q) error = %v, want %v", key, err, memory.ErrInvalidKey)
			}
		})
	}
}
