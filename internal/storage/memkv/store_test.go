package memkv

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kvgate/kvgate/internal/storage"
)

func set(t *testing.T, s *Store, key, value string) {
	t.Helper()
	tx := s.Begin(true)
	if err := tx.Set(key, []byte(value)); err != nil {
		t.Fatalf("Set(%q): %v", key, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func get(t *testing.T, s *Store, key string) (string, error) {
	t.Helper()
	tx := s.Begin(false)
	defer tx.Discard()
	v, err := tx.Get(key)
	return string(v), err
}

// ============================================================
// Point operations
// ============================================================

func TestSetGetDelete(t *testing.T) {
	s := New()
	set(t, s, "k", "v")

	got, err := get(t, s, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get = (%q, %v), want (\"v\", nil)", got, err)
	}

	if _, err := get(t, s, "missing"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("missing key error = %v, want ErrKeyNotFound", err)
	}

	tx := s.Begin(true)
	if err := tx.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := get(t, s, "k"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("deleted key error = %v, want ErrKeyNotFound", err)
	}

	// Deleting an absent key commits cleanly.
	tx = s.Begin(true)
	if err := tx.Delete("never"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	s := New()
	tx := s.Begin(false)
	defer tx.Discard()
	if err := tx.Set("k", []byte("v")); !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("Set on read tx = %v, want ErrReadOnly", err)
	}
	if err := tx.Delete("k"); !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("Delete on read tx = %v, want ErrReadOnly", err)
	}
	if _, err := tx.Add("k", 1); !errors.Is(err, storage.ErrReadOnly) {
		t.Errorf("Add on read tx = %v, want ErrReadOnly", err)
	}
}

func TestClosedTx(t *testing.T) {
	s := New()
	tx := s.Begin(true)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := tx.Get("k"); !errors.Is(err, storage.ErrTxClosed) {
		t.Errorf("Get after commit = %v, want ErrTxClosed", err)
	}
	if err := tx.Commit(); !errors.Is(err, storage.ErrTxClosed) {
		t.Errorf("double commit = %v, want ErrTxClosed", err)
	}
}

func TestReadYourWrites(t *testing.T) {
	s := New()
	tx := s.Begin(true)
	if err := tx.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := tx.Get("k")
	if err != nil || string(v) != "v" {
		t.Fatalf("Get own write = (%q, %v), want (\"v\", nil)", v, err)
	}
	if err := tx.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tx.Get("k"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("Get own delete = %v, want ErrKeyNotFound", err)
	}
	tx.Discard()
}

// ============================================================
// Conflicts
// ============================================================

func TestCommitConflict(t *testing.T) {
	s := New()
	set(t, s, "k", "0")

	t1 := s.Begin(true)
	if _, err := t1.Get("k"); err != nil {
		t.Fatalf("t1 Get: %v", err)
	}

	// A second writer lands between t1's read and its commit.
	set(t, s, "k", "other")

	if err := t1.Set("k", []byte("mine")); err != nil {
		t.Fatalf("t1 Set: %v", err)
	}
	err := t1.Commit()
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("Commit = %v, want ErrConflict", err)
	}
	if !s.IsRetryable(err) {
		t.Error("conflict must be retryable")
	}

	if got, _ := get(t, s, "k"); got != "other" {
		t.Errorf("value = %q, want the racing writer's %q", got, "other")
	}
}

func TestConflictOnReadOfAbsence(t *testing.T) {
	s := New()

	t1 := s.Begin(true)
	if _, err := t1.Get("k"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("Get: %v", err)
	}

	set(t, s, "k", "raced")

	if err := t1.Set("k", []byte("mine")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := t1.Commit(); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("Commit = %v, want ErrConflict", err)
	}
}

func TestBlindWritesDoNotConflict(t *testing.T) {
	s := New()

	t1 := s.Begin(true)
	t2 := s.Begin(true)
	if err := t1.Set("k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := t2.Set("k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	if err := t1.Commit(); err != nil {
		t.Fatalf("t1 Commit: %v", err)
	}
	if err := t2.Commit(); err != nil {
		t.Fatalf("t2 Commit: %v", err)
	}
	if got, _ := get(t, s, "k"); got != "two" {
		t.Errorf("value = %q, want last writer %q", got, "two")
	}
}

// ============================================================
// Expiry
// ============================================================

func TestTTLExpiry(t *testing.T) {
	s := New()
	tx := s.Begin(true)
	if err := tx.SetTTL("k", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	rd := s.Begin(false)
	ttl, has, err := rd.TTL("k")
	rd.Discard()
	if err != nil || !has {
		t.Fatalf("TTL = (%v, %v, %v), want a live expiry", ttl, has, err)
	}
	if ttl <= 0 || ttl > 100*time.Millisecond {
		t.Errorf("remaining ttl %v out of range", ttl)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := get(t, s, "k"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("expired key error = %v, want ErrKeyNotFound", err)
	}
}

func TestTTLWithoutExpiry(t *testing.T) {
	s := New()
	set(t, s, "k", "v")
	tx := s.Begin(false)
	defer tx.Discard()
	ttl, has, err := tx.TTL("k")
	if err != nil || has || ttl != 0 {
		t.Fatalf("TTL = (%v, %v, %v), want (0, false, nil)", ttl, has, err)
	}
	if _, _, err := tx.TTL("missing"); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("TTL missing = %v, want ErrKeyNotFound", err)
	}
}

func TestSweep(t *testing.T) {
	s := New()
	tx := s.Begin(true)
	if err := tx.SetTTL("dead", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := tx.Set("alive", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
	if n := s.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
}

// ============================================================
// Counters
// ============================================================

func TestAdd(t *testing.T) {
	s := New()

	tx := s.Begin(true)
	n, err := tx.Add("n", 1)
	if err != nil || n != 1 {
		t.Fatalf("Add fresh = (%d, %v), want (1, nil)", n, err)
	}
	n, err = tx.Add("n", 41)
	if err != nil || n != 42 {
		t.Fatalf("Add again = (%d, %v), want (42, nil)", n, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if got, _ := get(t, s, "n"); got != "42" {
		t.Errorf("stored counter = %q, want \"42\"", got)
	}
}

func TestAddPreservesTTL(t *testing.T) {
	s := New()
	tx := s.Begin(true)
	if err := tx.SetTTL("n", []byte("10"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx = s.Begin(true)
	if _, err := tx.Add("n", 5); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	rd := s.Begin(false)
	defer rd.Discard()
	ttl, has, err := rd.TTL("n")
	if err != nil || !has {
		t.Fatalf("TTL after Add = (%v, %v, %v), want a live expiry", ttl, has, err)
	}
	if ttl < 59*time.Minute {
		t.Errorf("ttl %v lost on Add", ttl)
	}
}

func TestAddErrors(t *testing.T) {
	s := New()
	set(t, s, "text", "abc")
	set(t, s, "max", strconv.FormatInt(1<<62, 10))

	tx := s.Begin(true)
	defer tx.Discard()
	if _, err := tx.Add("text", 1); !errors.Is(err, storage.ErrNotInteger) {
		t.Errorf("Add on text = %v, want ErrNotInteger", err)
	}
	if _, err := tx.Add("max", 1<<62); !errors.Is(err, storage.ErrIntegerOverflow) {
		t.Errorf("Add overflow = %v, want ErrIntegerOverflow", err)
	}
}

// ============================================================
// Scans and range deletes
// ============================================================

func TestScanKeysOrder(t *testing.T) {
	s := New()
	for _, k := range []string{"c", "a", "b"} {
		set(t, s, k, "v")
	}

	tx := s.Begin(false)
	defer tx.Discard()

	var got []string
	if err := tx.ScanKeys("", func(k string) bool {
		got = append(got, k)
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("scan order (-want +got):\n%s", diff)
	}

	got = got[:0]
	if err := tx.ScanKeys("b", func(k string) bool {
		got = append(got, k)
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("scan from start (-want +got):\n%s", diff)
	}

	got = got[:0]
	if err := tx.ScanKeys("", func(k string) bool {
		got = append(got, k)
		return false
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("early stop visited %d keys, want 1", len(got))
	}
}

func TestScanSeesPendingWrites(t *testing.T) {
	s := New()
	set(t, s, "a", "v")
	set(t, s, "b", "v")

	tx := s.Begin(true)
	defer tx.Discard()
	if err := tx.Set("c", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Delete("a"); err != nil {
		t.Fatal(err)
	}

	var got []string
	if err := tx.ScanKeys("", func(k string) bool {
		got = append(got, k)
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("scan with pending writes (-want +got):\n%s", diff)
	}
}

func TestClearRange(t *testing.T) {
	s := New()
	for _, k := range []string{"a", "b", "c", "d"} {
		set(t, s, k, "v")
	}

	tx := s.Begin(true)
	if err := tx.ClearRange("b", "d"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	for k, want := range map[string]bool{"a": true, "b": false, "c": false, "d": true} {
		_, err := get(t, s, k)
		if got := err == nil; got != want {
			t.Errorf("key %q present = %v, want %v", k, got, want)
		}
	}

	tx = s.Begin(true)
	if err := tx.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("Len after Clear = %d, want 0", n)
	}
}

// ============================================================
// Watch
// ============================================================

func waitFired(t *testing.T, ch <-chan struct{}) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

func TestWatchFiresOnWrite(t *testing.T) {
	s := New()
	ch, err := s.Watch(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	set(t, s, "k", "v")
	if !waitFired(t, ch) {
		t.Fatal("watch did not fire on write")
	}
}

func TestWatchFiresOnDelete(t *testing.T) {
	s := New()
	set(t, s, "k", "v")
	ch, err := s.Watch(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	tx := s.Begin(true)
	if err := tx.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if !waitFired(t, ch) {
		t.Fatal("watch did not fire on delete")
	}
}

func TestWatchFiresOnSweep(t *testing.T) {
	s := New()
	tx := s.Begin(true)
	if err := tx.SetTTL("k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	ch, err := s.Watch(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	s.Sweep()
	if !waitFired(t, ch) {
		t.Fatal("watch did not fire on sweep expiry")
	}
}

func TestWatchIgnoresOtherKeys(t *testing.T) {
	s := New()
	ch, err := s.Watch(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	set(t, s, "other", "v")
	select {
	case <-ch:
		t.Fatal("watch fired for an unrelated key")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchCancelUnregisters(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Watch(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	time.Sleep(20 * time.Millisecond)
	set(t, s, "k", "v")
	select {
	case <-ch:
		t.Fatal("cancelled watch still fired")
	case <-time.After(50 * time.Millisecond):
	}
}

// ============================================================
// Lifecycle
// ============================================================

func TestClosedStore(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	tx := s.Begin(true)
	if err := tx.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Commit on closed store = %v, want ErrClosed", err)
	}
	if _, err := s.Watch(context.Background(), "k"); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Watch on closed store = %v, want ErrClosed", err)
	}
	if err := s.Close(); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("double Close = %v, want ErrClosed", err)
	}
}
