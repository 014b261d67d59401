// Package source implements the content-addressed source cache, per-source
// fetchers (URL/git/path), checksum and attestation verification (spec.md
// §4.5, component F).
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/netfetch"
)

// Cache is the content-addressed store of spec.md §3 "Source cache entry":
// addressed by `(stem_of_filename, first_8_hex_of_content_hash)` under a
// src_cache/ root, with a sibling directory sharing the same key holding
// archives' extracted form.
type Cache struct {
	Root string
	// LockTTL bounds how long a cache-key lock may be held before a new
	// waiter reclaims it as stale (spec.md §5 "Stale locks older than a
	// configurable TTL are reclaimed").
	LockTTL time.Duration
	// Fetcher is the network-client boundary (spec.md §1) used for every
	// URL-source download; callers may substitute a mock in tests.
	Fetcher netfetch.Client
}

// NewCache opens (creating if absent) a cache rooted at root.
func NewCache(root string) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, diag.Wrap(diag.KindSource, diag.Span{}, err, "creating cache root %q", root)
	}
	return &Cache{Root: root, LockTTL: 10 * time.Minute, Fetcher: netfetch.New(2)}, nil
}

// Key computes the cache-key addressing rule for a URL source: the
// filename stem plus the first 8 hex digits of the content hash.
func Key(filename, contentHashHex string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	n := 8
	if len(contentHashHex) < n {
		n = len(contentHashHex)
	}
	return stem + "_" + contentHashHex[:n]
}

// EntryPath returns the path of the cached artifact for key (the
// downloaded file or the extracted tree's parent directory).
func (c *Cache) EntryPath(key string) string {
	return filepath.Join(c.Root, key)
}

// ExtractedPath returns the sibling directory an archive's extracted form
// lives in, sharing key with the archive itself (spec.md §3).
func (c *Cache) ExtractedPath(key string) string {
	return filepath.Join(c.Root, key+".extracted")
}

// withLock runs fn while holding an exclusive lock on the given cache key,
// reclaiming the lock file if it appears stale (held longer than
// c.LockTTL, per spec.md §5's "Shared resources" table).
func (c *Cache) withLock(ctx context.Context, key string, fn func() error) error {
	lockPath := filepath.Join(c.Root, "."+key+".lock")
	fl := flock.New(lockPath)

	deadline := time.Now().Add(c.LockTTL)
	for {
		locked, err := fl.TryLockContext(ctx, 200*time.Millisecond)
		if err != nil {
			return diag.Wrap(diag.KindSource, diag.Span{}, err, "locking cache key %q", key)
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > c.LockTTL {
				os.Remove(lockPath)
				continue
			}
		}
	}
	defer fl.Unlock()
	return fn()
}

// sha256File computes the hex sha256 digest of the file at path.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
