package progress_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/p-n-ai/pai-lessons/internal/progress"
)

// testBackend exercises the Backend contract shared by every implementation.
func testBackend(t *testing.T, b progress.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		if err := b.Ping(ctx); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, ok, err := b.Get(ctx, "ns-missing", "nothing")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ok {
			t.Error("Get() ok = true for missing key")
		}
	})

	t.Run("set and overwrite", func(t *testing.T) {
		if err := b.Set(ctx, "ns-set", "k", "one"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := b.Set(ctx, "ns-set", "k", "two"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		v, ok, err := b.Get(ctx, "ns-set", "k")
		if err != nil || !ok {
			t.Fatalf("Get() = %q, %v, %v", v, ok, err)
		}
		if v != "two" {
			t.Errorf("Get() = %q, want two", v)
		}
	})

	t.Run("namespaces isolated", func(t *testing.T) {
		_ = b.Set(ctx, "ns-a", "shared", "a")
		_, ok, _ := b.Get(ctx, "ns-b", "shared")
		if ok {
			t.Error("key leaked across namespaces")
		}
	})

	t.Run("incr", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			n, err := b.Incr(ctx, "ns-incr", "counter")
			if err != nil {
				t.Fatalf("Incr() error = %v", err)
			}
			if n != want {
				t.Errorf("Incr() = %d, want %d", n, want)
			}
		}
		v, _, _ := b.Get(ctx, "ns-incr", "counter")
		if v != "3" {
			t.Errorf("stored counter = %q, want 3", v)
		}
	})

	t.Run("incr existing decimal string", func(t *testing.T) {
		_ = b.Set(ctx, "ns-incr2", "counter", "41")
		n, err := b.Incr(ctx, "ns-incr2", "counter")
		if err != nil {
			t.Fatalf("Incr() error = %v", err)
		}
		if n != 42 {
			t.Errorf("Incr() = %d, want 42", n)
		}
	})

	t.Run("concurrent incr", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := b.Incr(ctx, "ns-race", "counter"); err != nil {
					t.Errorf("Incr() error = %v", err)
				}
			}()
		}
		wg.Wait()
		v, _, _ := b.Get(ctx, "ns-race", "counter")
		if v != "20" {
			t.Errorf("counter after 20 concurrent increments = %q, want 20", v)
		}
	})
}

func TestMemoryBackend(t *testing.T) {
	testBackend(t, progress.NewMemoryBackend())
}

func TestSQLiteBackend(t *testing.T) {
	b, err := progress.OpenSQLite(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	testBackend(t, b)
}

func TestSQLiteBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "progress.db")

	b, err := progress.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	store := progress.NewStore(b, "p1")
	if err := store.MarkCompleted(ctx, nahw, 0); err != nil {
		t.Fatalf("MarkCompleted() error = %v", err)
	}
	if err := store.SetDarkMode(ctx, true); err != nil {
		t.Fatalf("SetDarkMode() error = %v", err)
	}
	_ = b.Close()

	reopened, err := progress.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen error = %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	store = progress.NewStore(reopened, "p1")
	done, _ := store.IsCompleted(ctx, nahw, 0)
	if !done {
		t.Error("completion flag lost across reopen")
	}
	n, _ := store.CompletedCount(ctx, nahw)
	if n != 1 {
		t.Errorf("CompletedCount() = %d, want 1", n)
	}
	on, _ := store.DarkMode(ctx)
	if !on {
		t.Error("dark mode lost across reopen")
	}
}

func TestSQLiteBackend_IncrNonNumeric(t *testing.T) {
	ctx := context.Background()
	b, err := progress.OpenSQLite(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	_ = b.Set(ctx, "p1", "counter", "garbage")
	n, err := b.Incr(ctx, "p1", "counter")
	if err != nil {
		t.Fatalf("Incr() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Incr() over non-numeric = %d, want 1", n)
	}
}

func TestPostgresBackend_NilPool(t *testing.T) {
	if _, err := progress.NewPostgresBackend(nil); err == nil {
		t.Fatal("NewPostgresBackend(nil) should return error")
	}
}
