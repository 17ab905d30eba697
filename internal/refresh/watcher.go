// Package refresh polls a store for a new document version and reports
// changes made by other writers.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/usv-planning/matchboard/internal/store"
)

// Versioner is the part of store.Store the watcher needs.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

type Watcher struct {
	src      Versioner
	interval time.Duration
	log      *zap.Logger
	onChange func(version string)

	mu     sync.Mutex
	last   string
	primed bool
}

func New(src Versioner, interval time.Duration, log *zap.Logger, onChange func(version string)) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{src: src, interval: interval, log: log, onChange: onChange}
}

// Check polls once. The first successful poll only records the version.
// A missing document counts as the empty version.
func (w *Watcher) Check(ctx context.Context) (bool, error) {
	v, err := w.src.Version(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	w.mu.Lock()
	changed := w.primed && v != w.last
	w.last, w.primed = v, true
	w.mu.Unlock()

	if changed && w.onChange != nil {
		w.onChange(v)
	}
	return changed, nil
}

// Seen marks v as known, so a local save does not come back as a change.
func (w *Watcher) Seen(v string) {
	w.mu.Lock()
	w.last, w.primed = v, true
	w.mu.Unlock()
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.Check(ctx); err != nil {
		w.log.Warn("initial version check failed", zap.Error(err))
	}
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			changed, err := w.Check(ctx)
			if err != nil {
				w.log.Warn("version check failed", zap.Error(err))
				continue
			}
			if changed {
				w.log.Info("match document changed upstream")
			}
		}
	}
}
