package bookmarks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "bookmarks.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	clock := time.Date(2024, 3, 1, 12, 30, 15, 0, time.UTC)
	s.now = func() time.Time { return clock }

	if _, err := s.Add(ctx, "hello", "pkgs.hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, "conf", `nixosConfigurations.host."config.x"`); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []Bookmark{
		{Name: "conf", Path: `nixosConfigurations.host."config.x"`, CreatedAt: clock},
		{Name: "hello", Path: "pkgs.hello", CreatedAt: clock},
	}
	opt := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	clock = clock.Add(time.Hour)
	if _, err := s.Add(ctx, "hello", "pkgs.hello.meta"); err != nil {
		t.Fatal(err)
	}
	b, err := s.Get(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if b.Path != "pkgs.hello.meta" || !b.CreatedAt.Equal(clock) {
		t.Errorf("replace failed: %+v", b)
	}

	if err := s.Remove(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove: %v", err)
	}
	if err := s.Remove(ctx, "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove: %v", err)
	}
	if _, err := s.Add(ctx, "  ", "x"); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name: %v", err)
	}
}

func TestStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, "x", "a.b"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	b, err := s.Get(ctx, "x")
	if err != nil || b.Path != "a.b" {
		t.Errorf("reopened store lost the bookmark: %+v %v", b, err)
	}
}

func TestStoreMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Add(ctx, "m", "a"); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("memory store: %v %v", list, err)
	}
}
