// Package cache provides the device-local persistent key-value slot used for
// same-device continuity: the active conversation-session id and the
// remembered sign-in token. It is never the source of truth for transcript
// content.
package cache

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Well-known keys
const (
	SessionIDKey = "chatSessionId"
	AuthTokenKey = "authToken"
)

var bucketName = []byte("local")

// Cache is a bbolt-backed key-value store scoped to this device
type Cache struct {
	db *bolt.DB
}

// Open opens (or creates) the cache file
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache file
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get reads a value; a missing key yields ok=false
func (c *Cache) Get(key string) (string, bool, error) {
	var value string
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, found, nil
}

// Set writes a value
func (c *Cache) Set(key, value string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; deleting a missing key is not an error
func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}
