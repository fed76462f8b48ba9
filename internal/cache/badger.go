package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/quantmind-br/whyml-go/internal/domain"
)

// value encodings, stored as the first byte of every value
const (
	encodingRaw  byte = 0
	encodingZstd byte = 1
)

// BadgerCache is a persistent cache implementation using BadgerDB.
// It keeps raw manifest bodies fetched from remote sources across runs.
type BadgerCache struct {
	db       *badger.DB
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	stopGC   chan struct{}
}

// NewBadgerCache creates a new BadgerDB cache
func NewBadgerCache(opts Options) (*BadgerCache, error) {
	var badgerOpts badger.Options

	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Directory == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			opts.Directory = filepath.Join(homeDir, ".whyml", "cache")
		}

		// Ensure directory exists
		if err := os.MkdirAll(opts.Directory, 0755); err != nil {
			return nil, err
		}

		badgerOpts = badger.DefaultOptions(opts.Directory)
	}

	// Disable logging unless explicitly enabled
	if !opts.Logger {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		encoder.Close()
		decoder.Close()
		return nil, err
	}

	c := &BadgerCache{
		db:       db,
		compress: opts.Compress,
		encoder:  encoder,
		decoder:  decoder,
		stopGC:   make(chan struct{}),
	}

	// Start background garbage collection
	if !opts.InMemory {
		go c.runGC(5 * time.Minute)
	}

	return c, nil
}

func (c *BadgerCache) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			_ = c.db.RunValueLogGC(0.5)
		}
	}
}

// Get retrieves a value from cache
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	cacheKey := ManifestKey(key)

	var stored []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrCacheMiss
			}
			return err
		}

		stored, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.decode(stored)
}

// Set stores a value in cache with TTL
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cacheKey := ManifestKey(key)
	stored := c.encode(value)

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cacheKey), stored)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *BadgerCache) encode(value []byte) []byte {
	if !c.compress {
		return append([]byte{encodingRaw}, value...)
	}
	out := make([]byte, 1, len(value)/2+1)
	out[0] = encodingZstd
	return c.encoder.EncodeAll(value, out)
}

func (c *BadgerCache) decode(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("corrupt cache value: empty")
	}
	switch stored[0] {
	case encodingRaw:
		return stored[1:], nil
	case encodingZstd:
		out, err := c.decoder.DecodeAll(stored[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("corrupt cache value: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("corrupt cache value: unknown encoding %d", stored[0])
	}
}

// Has checks if a key exists in cache
func (c *BadgerCache) Has(ctx context.Context, key string) bool {
	cacheKey := ManifestKey(key)

	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(cacheKey))
		return err
	})

	return err == nil
}

// Delete removes a key from cache
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	cacheKey := ManifestKey(key)

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(cacheKey))
	})
}

// Close releases cache resources
func (c *BadgerCache) Close() error {
	select {
	case <-c.stopGC:
	default:
		close(c.stopGC)
	}
	c.encoder.Close()
	c.decoder.Close()
	return c.db.Close()
}

// Clear removes all entries from the cache
func (c *BadgerCache) Clear() error {
	return c.db.DropAll()
}

// Size returns the number of entries in the cache
func (c *BadgerCache) Size() int64 {
	var count int64
	_ = c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Stats returns cache statistics
func (c *BadgerCache) Stats() map[string]interface{} {
	lsm, vlog := c.db.Size()
	return map[string]interface{}{
		"entries":   c.Size(),
		"lsm_size":  lsm,
		"vlog_size": vlog,
		"compress":  c.compress,
	}
}
