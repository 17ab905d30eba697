// Package store persists the match collection as one opaque JSON document.
//
// Backends only move bytes around; decoding belongs to the caller. Each
// backend reports a version token (a git blob sha, an object ETag or a
// content digest) so pollers can detect changes without downloading and
// hashing the document themselves.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

var (
	// ErrNotFound means the backend has no document yet.
	ErrNotFound = errors.New("store: document not found")
	// ErrPartialSave means the local mirror was written but the remote was not.
	ErrPartialSave = errors.New("store: saved locally, remote save failed")
	// ErrConflict means the remote rejected a write against a stale version.
	ErrConflict = errors.New("store: version conflict")
)

// Snapshot is a document together with the version it was read at.
type Snapshot struct {
	Data    []byte
	Version string
}

// Store is implemented by every backend.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, data []byte) (string, error)
	Version(ctx context.Context) (string, error)
}

// Digest is the version used by backends without a native one.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// StatusError is a non-2xx answer from an HTTP backend.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Backend, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Backend, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return ErrConflict
	}
	return nil
}

func statusError(backend string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	return &StatusError{Backend: backend, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// Memory keeps the document in process. Used for tests and STORE_BACKEND=memory.
type Memory struct {
	mu      sync.RWMutex
	data    []byte
	version int
	exists  bool
}

func NewMemory(initial []byte) *Memory {
	m := &Memory{}
	if initial != nil {
		m.data = append([]byte(nil), initial...)
		m.version = 1
		m.exists = true
	}
	return m
}

func (m *Memory) Load(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{Data: append([]byte(nil), m.data...), Version: m.versionString()}, nil
}

func (m *Memory) Save(_ context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.version++
	m.exists = true
	return m.versionString(), nil
}

func (m *Memory) Version(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.exists {
		return "", ErrNotFound
	}
	return m.versionString(), nil
}

func (m *Memory) versionString() string { return fmt.Sprintf("v%d", m.version) }
