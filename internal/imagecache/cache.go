// Package imagecache keeps fetched photo bytes on disk so the viewer does
// not download the same photo twice.
package imagecache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketImages = []byte("images")
	bucketMeta   = []byte("meta")
)

// DefaultMemoryLimit bounds the bytes held in the in-memory tier
const DefaultMemoryLimit = 64 << 20

// entryMeta is stored next to each image
type entryMeta struct {
	StoredAt time.Time `json:"stored_at"`
	Size     int       `json:"size"`
}

// Cache implements domain.ImageCache using BoltDB with an in-memory tier
// for recently used images
type Cache struct {
	db     *bolt.DB
	logger *slog.Logger
	maxAge time.Duration
	now    func() time.Time

	mu       sync.Mutex // Protects the memory tier
	mem      map[string][]byte
	order    []string // Insertion order of mem keys, oldest first
	memBytes int
	memLimit int
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxAge expires entries older than d; zero keeps them forever
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		c.maxAge = d
	}
}

// WithMemoryLimit bounds the in-memory tier
func WithMemoryLimit(n int) Option {
	return func(c *Cache) {
		c.memLimit = n
	}
}

// WithLogger sets the cache logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New opens the cache for serverURL under baseDir. An empty baseDir gives a
// memory-only cache.
func New(baseDir, serverURL string, opts ...Option) (*Cache, error) {
	c := &Cache{
		logger:   slog.Default(),
		now:      time.Now,
		mem:      make(map[string][]byte),
		memLimit: DefaultMemoryLimit,
	}
	for _, opt := range opts {
		opt(c)
	}

	if baseDir == "" {
		return c, nil
	}

	path := dbPath(baseDir, serverURL)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketImages, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	c.db = db
	return c, nil
}

// dbPath returns the database file holding serverURL's images
func dbPath(baseDir, serverURL string) string {
	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	return filepath.Join(dir, "images.db")
}

// Purge deletes the on-disk cache for serverURL without opening it. It is a
// no-op for a memory-only cache or when nothing was cached yet.
func Purge(baseDir, serverURL string) error {
	if baseDir == "" {
		return nil
	}
	if err := os.Remove(dbPath(baseDir, serverURL)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image cache: %w", err)
	}
	return nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached bytes for a photo
func (c *Cache) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	if data, ok := c.mem[id]; ok {
		c.mu.Unlock()
		return data, true
	}
	c.mu.Unlock()

	if c.db == nil {
		return nil, false
	}

	var data []byte
	expired := false
	c.db.View(func(tx *bolt.Tx) error {
		var meta entryMeta
		if raw := tx.Bucket(bucketMeta).Get([]byte(id)); raw != nil && json.Unmarshal(raw, &meta) == nil {
			if c.maxAge > 0 && c.now().Sub(meta.StoredAt) > c.maxAge {
				expired = true
				return nil
			}
		}
		if v := tx.Bucket(bucketImages).Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if expired {
		c.Delete(id)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	// Promote to memory
	c.mu.Lock()
	c.remember(id, data)
	c.mu.Unlock()

	return data, true
}

// Put stores the bytes for a photo
func (c *Cache) Put(id string, data []byte) error {
	c.mu.Lock()
	c.remember(id, data)
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	meta, err := json.Marshal(entryMeta{StoredAt: c.now().UTC(), Size: len(data)})
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketImages).Put([]byte(id), data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(id), meta)
	})
}

// Delete evicts a photo
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	c.forget(id)
	c.mu.Unlock()

	if c.db == nil {
		return
	}

	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketImages).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete([]byte(id))
	})
	if err != nil {
		c.logger.Warn("failed to evict cached image", "id", id, "error", err)
	}
}

// Clear removes every cached image
func (c *Cache) Clear() {
	c.mu.Lock()
	c.mem = make(map[string][]byte)
	c.order = nil
	c.memBytes = 0
	c.mu.Unlock()

	if c.db == nil {
		return
	}

	err := c.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketImages, bucketMeta} {
			if err := tx.DeleteBucket(bucket); err != nil && err != bolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to clear image cache", "error", err)
	}
}

// Len returns the number of images in the memory tier
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}

// remember adds an entry to the memory tier, evicting the oldest entries
// past the limit. Caller holds c.mu.
func (c *Cache) remember(id string, data []byte) {
	if len(data) > c.memLimit {
		c.forget(id)
		return
	}
	c.forget(id)
	c.mem[id] = data
	c.order = append(c.order, id)
	c.memBytes += len(data)

	for c.memBytes > c.memLimit && len(c.order) > 0 {
		c.forget(c.order[0])
	}
}

// forget removes an entry from the memory tier. Caller holds c.mu.
func (c *Cache) forget(id string) {
	data, ok := c.mem[id]
	if !ok {
		return
	}
	delete(c.mem, id)
	c.memBytes -= len(data)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
