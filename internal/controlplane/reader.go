// Package controlplane watches the file-based control-plane switch that
// gates whether the daemon is enabled, and in what mode, plus its live
// bankroll/cap/threshold tunables. Grounded on
// original_source/botctl.py's state dict and atomic-write discipline,
// restructured into the teacher's viper+fsnotify hot-reload idiom (see
// _examples for the viper.OnConfigChange pattern) with a 2s fallback poll
// so a missed fsnotify event (common on some filesystems/containers) is
// never fatal.
package controlplane

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	goccyjson "github.com/goccy/go-json"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watcher holds the last-known-good State and keeps it fresh via an fsnotify
// watch plus a periodic fallback poll.
type Watcher struct {
	mu      sync.RWMutex
	current State

	path         string
	pollInterval time.Duration
	logger       *zap.Logger
	v            *viper.Viper
}

// New creates a watcher and performs one synchronous initial load. A
// missing or malformed file is not an error: the watcher falls back to
// Default() and keeps polling, per botctl.py's tolerant _read().
func New(path string, pollInterval time.Duration, logger *zap.Logger) (*Watcher, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	w := &Watcher{
		current:      Default(),
		path:         path,
		pollInterval: pollInterval,
		logger:       logger,
		v:            v,
	}

	w.reload()
	return w, nil
}

// Current returns a snapshot of the last-known-good state.
func (w *Watcher) Current() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run installs the fsnotify watch and blocks, reconciling on every fsnotify
// event and every poll tick, until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	w.v.OnConfigChange(func(_ fsnotify.Event) {
		w.reload()
	})
	w.v.WatchConfig()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

// reload re-reads the control-plane file and swaps in the parsed state on
// success. A missing file is ignored silently, any other read or parse
// failure is logged, and in both cases the last-known-good state is kept.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		w.logger.Warn("control-plane-read-failed", zap.Error(err))
		return
	}

	var raw struct {
		Enabled     *bool    `json:"enabled"`
		Mode        *string  `json:"mode"`
		Bankroll    *float64 `json:"bankroll"`
		MaxPerTrade *float64 `json:"max_per_trade"`
		MinBufEdge  *float64 `json:"min_buf_edge"`
		UpdatedAt   *int64   `json:"updated_at"`
	}
	if err := goccyjson.Unmarshal(data, &raw); err != nil {
		w.logger.Warn("control-plane-parse-failed", zap.Error(err))
		return
	}

	next := w.Current()
	if raw.Enabled != nil {
		next.Enabled = *raw.Enabled
	}
	if raw.Mode != nil {
		next.Mode = Mode(*raw.Mode)
	}
	if raw.Bankroll != nil {
		next.Bankroll = *raw.Bankroll
	}
	if raw.MaxPerTrade != nil {
		next.MaxPerTrade = *raw.MaxPerTrade
	}
	if raw.MinBufEdge != nil {
		next.MinBufEdge = *raw.MinBufEdge
	}
	if raw.UpdatedAt != nil {
		next.UpdatedAt = *raw.UpdatedAt
	}

	w.mu.Lock()
	changed := w.current != next
	w.current = next
	w.mu.Unlock()

	if changed {
		w.logger.Info("control-plane-state-changed",
			zap.Bool("enabled", next.Enabled),
			zap.String("mode", string(next.Mode)),
			zap.Float64("bankroll", next.Bankroll),
			zap.Float64("max-per-trade", next.MaxPerTrade),
			zap.Float64("min-buf-edge", next.MinBufEdge))
	}
}
