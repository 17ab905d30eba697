package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type cacheEntry struct {
	Key       string `gorm:"primaryKey"`
	Payload   []byte
	Version   string
	UpdatedAt time.Time
}

func (cacheEntry) TableName() string { return "cache_entries" }

// Cache is the local copy of the document, kept in SQLite. It is a Store of
// its own so it can stand in when the remote is unreachable.
type Cache struct {
	db  *gorm.DB
	key string
}

// NewCache expects the cache_entries table to exist (see db.Migrate).
func NewCache(d *gorm.DB, key string) *Cache {
	if key == "" {
		key = "matches"
	}
	return &Cache{db: d, key: key}
}

func (c *Cache) entry(ctx context.Context) (cacheEntry, error) {
	var e cacheEntry
	err := c.db.WithContext(ctx).First(&e, "key = ?", c.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cacheEntry{}, ErrNotFound
	}
	if err != nil {
		return cacheEntry{}, fmt.Errorf("cache read: %w", err)
	}
	return e, nil
}

func (c *Cache) Load(ctx context.Context) (Snapshot, error) {
	e, err := c.entry(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Data: e.Payload, Version: e.Version}, nil
}

func (c *Cache) Save(ctx context.Context, data []byte) (string, error) {
	return c.put(ctx, data, Digest(data))
}

// put stores data under an explicit version, used to mirror a remote snapshot.
func (c *Cache) put(ctx context.Context, data []byte, version string) (string, error) {
	e := cacheEntry{
		Key:       c.key,
		Payload:   append([]byte(nil), data...),
		Version:   version,
		UpdatedAt: time.Now().UTC(),
	}
	if err := c.db.WithContext(ctx).Save(&e).Error; err != nil {
		return "", fmt.Errorf("cache write: %w", err)
	}
	return version, nil
}

func (c *Cache) Version(ctx context.Context) (string, error) {
	e, err := c.entry(ctx)
	if err != nil {
		return "", err
	}
	return e.Version, nil
}

// UpdatedAt reports when the cached copy was last written.
func (c *Cache) UpdatedAt(ctx context.Context) (time.Time, error) {
	e, err := c.entry(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return e.UpdatedAt, nil
}
