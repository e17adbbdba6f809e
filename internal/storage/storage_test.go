package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/wko-katas/katas-engine/internal/models"
)

func sampleState() *models.ClientState {
	return &models.ClientState{
		Favorites: []string{"k1", "k3"},
		DarkMode:  true,
		VideoProgress: map[string]models.VideoProgress{
			"k1": {KataID: "k1", CurrentTime: 42, Duration: 100, WatchedPercentage: 42},
		},
	}
}

func testStateStore(t *testing.T, store StateStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.LoadState(ctx, "katas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown key, got %v", err)
	}

	want := sampleState()
	if err := store.SaveState(ctx, "katas", want); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	got, err := store.LoadState(ctx, "katas")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	// Keys are isolated
	if err := store.SaveState(ctx, "katas:ana", models.NewClientState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	got, _ = store.LoadState(ctx, "katas")
	if len(got.Favorites) != 2 {
		t.Errorf("saving another key changed this one: %+v", got)
	}

	// Saved state is detached from the caller's value
	want.Favorites[0] = "mutated"
	got, _ = store.LoadState(ctx, "katas")
	if got.Favorites[0] != "k1" {
		t.Error("store must not alias the saved state")
	}
}

func TestMemoryStateStore(t *testing.T) {
	testStateStore(t, NewMemoryRepository())
}

func TestFileStateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "katas.json")
	store, err := NewFileStateStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStateStore failed: %v", err)
	}

	testStateStore(t, store)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected state file to exist: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestFileStateStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katas.json")
	ctx := context.Background()

	first, _ := NewFileStateStore(path, nil)
	if err := first.SaveState(ctx, "katas", sampleState()); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	second, _ := NewFileStateStore(path, nil)
	got, err := second.LoadState(ctx, "katas")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if !got.DarkMode || got.VideoProgress["k1"].CurrentTime != 42 {
		t.Errorf("unexpected state after reopen: %+v", got)
	}
}

func TestFileStateStoreConcurrentSaves(t *testing.T) {
	store, _ := NewFileStateStore(filepath.Join(t.TempDir(), "katas.json"), nil)
	ctx := context.Background()
	keys := []string{"a", "b", "c", "d", "e", "f"}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			s := models.NewClientState()
			s.Favorites = []string{key}
			if err := store.SaveState(ctx, key, s); err != nil {
				t.Errorf("SaveState(%s) failed: %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	for _, key := range keys {
		got, err := store.LoadState(ctx, key)
		if err != nil {
			t.Fatalf("LoadState(%s) failed: %v", key, err)
		}
		if len(got.Favorites) != 1 || got.Favorites[0] != key {
			t.Errorf("lost update for %s: %+v", key, got)
		}
	}
}

func TestFileStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katas.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	store, _ := NewFileStateStore(path, nil)
	if _, err := store.LoadState(context.Background(), "katas"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestNewFileStateStoreRequiresPath(t *testing.T) {
	if _, err := NewFileStateStore("", nil); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestMemoryUsers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	ana := &models.User{Username: "ana", Name: "Ana", Belt: models.BeltAzul, PasswordHash: "h1"}
	if err := repo.CreateUser(ctx, ana); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if ana.ID != 1 || ana.CreatedAt.IsZero() {
		t.Errorf("expected id and created_at to be assigned, got %+v", ana)
	}

	dup := &models.User{Username: "ana"}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	luis := &models.User{Username: "luis", Belt: models.BeltVerde}
	repo.CreateUser(ctx, luis)

	if n, _ := repo.CountUsers(ctx); n != 2 {
		t.Errorf("expected 2 users, got %d", n)
	}

	got, err := repo.GetUserByUsername(ctx, "luis")
	if err != nil || got.ID != luis.ID {
		t.Errorf("GetUserByUsername: %+v %v", got, err)
	}

	got.Belt = models.BeltMarron
	if err := repo.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	got, _ = repo.GetUserByID(ctx, luis.ID)
	if got.Belt != models.BeltMarron {
		t.Errorf("expected updated belt, got %q", got.Belt)
	}

	users, _ := repo.ListUsers(ctx)
	if len(users) != 2 || users[0].Username != "ana" || users[1].Username != "luis" {
		t.Errorf("expected users ordered by id, got %+v", users)
	}

	if err := repo.DeleteUser(ctx, ana.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := repo.GetUserByID(ctx, ana.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteUser(ctx, ana.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := repo.UpdateUser(ctx, &models.User{ID: 99}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on missing update, got %v", err)
	}
}

func TestMigrationNames(t *testing.T) {
	fsys := fstest.MapFS{
		"002_seed.sql":  {Data: []byte("SELECT 1")},
		"001_init.sql":  {Data: []byte("SELECT 1")},
		"README.md":     {Data: []byte("docs")},
		"old/000_x.sql": {Data: []byte("SELECT 1")},
	}

	names, err := migrationNames(fsys)
	if err != nil {
		t.Fatalf("migrationNames failed: %v", err)
	}

	want := []string{"001_init.sql", "002_seed.sql"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := migrationNames(Migrations())
	if err != nil {
		t.Fatalf("migrationNames failed: %v", err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Errorf("expected embedded 001_init.sql, got %v", names)
	}
}
