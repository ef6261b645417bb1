package local

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir", "nested")

	if _, err := NewStore(dir); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	original := record{Name: "test", Value: 42}
	if err := store.Save("collection", "item1", original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var loaded record
	if err := store.Load("collection", "item1", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != original {
		t.Errorf("Load() = %+v, want %+v", loaded, original)
	}

	raw, err := store.LoadRaw("collection", "item1")
	if err != nil {
		t.Fatalf("LoadRaw() error = %v", err)
	}
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		t.Errorf("LoadRaw() = %q, want newline-terminated json", raw)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	store.Save("c", "id", record{Name: "first"})
	store.Save("c", "id", record{Name: "second"})

	var loaded record
	if err := store.Load("c", "id", &loaded); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Name != "second" {
		t.Errorf("Name = %q, want second", loaded.Name)
	}

	ids, _ := store.List("c")
	if len(ids) != 1 {
		t.Errorf("List() = %v, temp files left behind?", ids)
	}
}

func TestStore_NotFound(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var loaded record
	if err := store.Load("c", "missing", &loaded); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete("c", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Load_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	os.MkdirAll(filepath.Join(dir, "c"), 0755)
	os.WriteFile(filepath.Join(dir, "c", "bad.json"), []byte("{oops"), 0644)

	var loaded record
	err := store.Load("c", "bad", &loaded)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want decode error", err)
	}
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	ids, err := store.List("empty")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() = %v, want empty", ids)
	}

	store.Save("c", "b", record{})
	store.Save("c", "a", record{})
	os.WriteFile(filepath.Join(dir, "c", "notes.txt"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(dir, "c", "sub"), 0755)

	ids, _ = store.List("c")
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("List() = %v, want [a b]", ids)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	store.Save("c", "x", record{})

	if err := store.Delete("c", "x"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.LoadRaw("c", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadRaw() after delete error = %v", err)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, key := range []string{"", ".", "..", "../escape", `a\b`} {
		if err := store.Save("c", key, record{}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
	if _, err := store.List("../up"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("List() error = %v, want ErrInvalidKey", err)
	}
}

func TestStore_Concurrent(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.Save("c", "shared", record{Value: n})
			var r record
			store.Load("c", "shared", &r)
		}(i)
	}
	wg.Wait()

	var r record
	if err := store.Load("c", "shared", &r); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}
