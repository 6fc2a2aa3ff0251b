package controlplane

import (
	"fmt"
	"os"
	"path/filepath"

	goccyjson "github.com/goccy/go-json"
)

// Read loads the current state from path, falling back to Default() when
// the file is absent, mirroring botctl.py's _read().
func Read(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	st := Default()
	if err := goccyjson.Unmarshal(data, &st); err != nil {
		return Default()
	}
	return st
}

// Write persists state to path atomically: write to a temp file in the same
// directory, then rename over the target. Grounded on botctl.py's _write(),
// which uses os.replace for the same reason — a reader must never observe a
// half-written file.
func Write(path string, st State) error {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create control-plane directory %s: %w", dir, err)
	}

	data, err := goccyjson.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal control-plane state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp control-plane file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename control-plane file %s -> %s: %w", tmp, path, err)
	}
	return nil
}
