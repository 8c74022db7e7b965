package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/worker"
)

type reading struct {
	Station string  `json:"station"`
	Wind    float64 `json:"wind"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "snapshot_test.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenStoreCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("database file should exist after OpenStore")
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := openTestStore(t)

	before := time.Now().UTC().Add(-time.Second)
	if err := store.Save("stationlist", []byte(`[1,2]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("stationlist", []byte(`[3]`)); err != nil {
		t.Fatalf("Save (replace): %v", err)
	}

	rec, err := store.Load("stationlist")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(rec.Payload) != `[3]` {
		t.Errorf("Payload = %s, want [3]", rec.Payload)
	}
	if rec.SavedAt.Before(before) {
		t.Errorf("SavedAt = %v, want after %v", rec.SavedAt, before)
	}

	names, err := store.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 || names[0] != "stationlist" {
		t.Errorf("Names() = %v, want [stationlist]", names)
	}
}

func TestLoadNotFound(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save("a", []byte(`1`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Errorf("Delete of missing snapshot = %v, want nil", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	store := openTestStore(t)

	want := []reading{{Station: "jdc-1001", Wind: 18}, {Station: "jdc-1002", Wind: 4.5}}
	if err := SaveJSON(store, "readings", want); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	got, savedAt, err := LoadJSON[[]reading](store, "readings")
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(got) != 2 || got[1] != want[1] {
		t.Errorf("LoadJSON() = %v, want %v", got, want)
	}
	if savedAt.IsZero() {
		t.Error("savedAt is zero")
	}
}

func TestLoadJSONDecodeError(t *testing.T) {
	store := openTestStore(t)
	if err := store.Save("bad", []byte(`{not json`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, err := LoadJSON[reading](store, "bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("LoadJSON() error = %v, want decode error", err)
	}
}

func newReadingHolder(results <-chan *reading) *holder.Holder[holder.None, *reading] {
	task := worker.NoParam(func(ctx context.Context) (*reading, error) {
		return <-results, nil
	})
	return holder.New(worker.Factory("reading", task, worker.JobConfig{}), holder.WithName("reading"))
}

func TestPersistAndRestore(t *testing.T) {
	store := openTestStore(t)

	results := make(chan *reading, 1)
	h := newReadingHolder(results)
	stop := Persist(store, "reading", h, nil)

	saved := make(chan struct{}, 1)
	h.OnResultChanged(func(*reading) { saved <- struct{}{} })

	results <- &reading{Station: "jdc-1003", Wind: 31}
	h.Refresh(holder.None{})

	select {
	case <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("no result notification")
	}
	stop()

	fresh := newReadingHolder(nil)
	var seeded *reading
	fresh.OnResultChanged(func(r *reading) { seeded = r })

	ok, err := Restore(store, "reading", fresh)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !ok {
		t.Fatal("Restore() found no snapshot")
	}
	if seeded == nil || seeded.Wind != 31 {
		t.Errorf("seeded = %+v, want wind 31", seeded)
	}
	if r, ok := fresh.LastResult(); !ok || r.Station != "jdc-1003" {
		t.Errorf("LastResult() = %+v, %v", r, ok)
	}
	if fresh.State() != holder.StateUninitialized {
		t.Errorf("Restore should not create the job, state = %q", fresh.State())
	}
}

func TestRestoreMissing(t *testing.T) {
	store := openTestStore(t)
	h := newReadingHolder(nil)

	ok, err := Restore(store, "reading", h)
	if err != nil || ok {
		t.Errorf("Restore() = %v, %v; want false, nil", ok, err)
	}
	if _, has := h.LastResult(); has {
		t.Error("holder should have no result")
	}
}

func TestRestoreStoredNull(t *testing.T) {
	store := openTestStore(t)
	if err := SaveJSON[*reading](store, "reading", nil); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	h := newReadingHolder(nil)
	notified := false
	h.OnResultChanged(func(*reading) { notified = true })

	ok, err := Restore(store, "reading", h)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if ok {
		t.Error("Restore() = true for a stored null, want false")
	}
	if notified {
		t.Error("listener notified for an absent snapshot")
	}
}
