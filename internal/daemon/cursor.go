package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	goccyjson "github.com/goccy/go-json"
)

// cursorFile is the on-disk shape of the batch-selection cursor. Grounded
// on original_source/daemon.py's load_cursor/save_cursor, which persist a
// single integer offset into the market universe.
type cursorFile struct {
	Cursor int `json:"cursor"`
}

// loadCursor reads the persisted cursor, defaulting to 0 when the file is
// absent or unreadable — a fresh start always begins at the front of the
// universe rather than failing.
func loadCursor(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	var cf cursorFile
	if err := goccyjson.Unmarshal(data, &cf); err != nil {
		return 0
	}
	if cf.Cursor < 0 {
		return 0
	}
	return cf.Cursor
}

// saveCursor persists the cursor atomically: write to a temp file in the
// same directory, then rename over the target, so a crash mid-write never
// leaves a half-written cursor for the next iteration to load.
func saveCursor(path string, cursor int) error {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory %s: %w", dir, err)
	}

	data, err := goccyjson.Marshal(cursorFile{Cursor: cursor})
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp cursor file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename cursor file %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// nextBatch selects up to batchSize items starting at cursor, wrapping
// around the slice with modulo arithmetic, and returns the batch plus the
// cursor value for the following call. Grounded on
// original_source/daemon.py's iter_batches.
func nextBatch[T any](items []T, cursor, batchSize int) ([]T, int) {
	n := len(items)
	if n == 0 || batchSize <= 0 {
		return nil, 0
	}
	if batchSize > n {
		batchSize = n
	}

	start := cursor % n
	batch := make([]T, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		batch = append(batch, items[(start+i)%n])
	}
	return batch, (start + batchSize) % n
}
