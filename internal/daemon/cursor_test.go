package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCursor_MissingFileDefaultsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if got := loadCursor(path); got != 0 {
		t.Errorf("expected 0 for missing file, got %d", got)
	}
}

func TestSaveCursorThenLoadCursor_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cursor.json")
	if err := saveCursor(path, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := loadCursor(path); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestLoadCursor_MalformedFileDefaultsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if got := loadCursor(path); got != 0 {
		t.Errorf("expected 0 for malformed file, got %d", got)
	}
}

func TestLoadCursor_NegativeValueDefaultsToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := os.WriteFile(path, []byte(`{"cursor": -5}`), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if got := loadCursor(path); got != 0 {
		t.Errorf("expected 0 for negative cursor, got %d", got)
	}
}

func TestNextBatch_WrapsAroundWithModulo(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	batch, next := nextBatch(items, 3, 4)
	want := []int{3, 4, 0, 1}
	if !equalInts(batch, want) {
		t.Errorf("expected %v, got %v", want, batch)
	}
	if next != 2 {
		t.Errorf("expected next cursor 2, got %d", next)
	}
}

func TestNextBatch_BatchLargerThanUniverseClampsToUniverseSize(t *testing.T) {
	items := []int{0, 1, 2}
	batch, next := nextBatch(items, 0, 10)
	if len(batch) != 3 {
		t.Errorf("expected batch clamped to universe size 3, got %d", len(batch))
	}
	if next != 0 {
		t.Errorf("expected cursor to wrap back to 0, got %d", next)
	}
}

func TestNextBatch_EmptyUniverseReturnsEmpty(t *testing.T) {
	batch, next := nextBatch([]int(nil), 0, 5)
	if batch != nil || next != 0 {
		t.Errorf("expected nil batch and cursor 0, got %v, %d", batch, next)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
