package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Mirrored reads through a remote store and keeps the local cache in step.
// Reads fall back to the cache when the remote fails; writes go to the cache
// first so an unreachable remote never loses an edit.
type Mirrored struct {
	remote Store
	cache  *Cache
	log    *zap.Logger
}

func NewMirrored(remote Store, cache *Cache, log *zap.Logger) *Mirrored {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirrored{remote: remote, cache: cache, log: log}
}

func (m *Mirrored) Load(ctx context.Context) (Snapshot, error) {
	snap, err := m.remote.Load(ctx)
	if err == nil {
		if _, cerr := m.cache.put(ctx, snap.Data, snap.Version); cerr != nil {
			m.log.Warn("cache mirror failed", zap.Error(cerr))
		}
		return snap, nil
	}
	m.log.Warn("remote load failed, falling back to cache", zap.Error(err))
	cached, cerr := m.cache.Load(ctx)
	if cerr != nil {
		return Snapshot{}, errors.Join(err, cerr)
	}
	return cached, nil
}

func (m *Mirrored) Save(ctx context.Context, data []byte) (string, error) {
	local, err := m.cache.Save(ctx, data)
	if err != nil {
		return "", err
	}
	version, err := m.remote.Save(ctx, data)
	if err != nil {
		m.log.Error("remote save failed, kept local copy", zap.Error(err))
		return local, fmt.Errorf("%w: %v", ErrPartialSave, err)
	}
	if _, cerr := m.cache.put(ctx, data, version); cerr != nil {
		m.log.Warn("cache version update failed", zap.Error(cerr))
	}
	return version, nil
}

func (m *Mirrored) Version(ctx context.Context) (string, error) {
	v, err := m.remote.Version(ctx)
	if err == nil {
		return v, nil
	}
	m.log.Debug("remote version failed, using cache", zap.Error(err))
	return m.cache.Version(ctx)
}
