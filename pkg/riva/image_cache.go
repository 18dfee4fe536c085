package riva

import (
	"strings"
	"sync"
)

// ImageCache mirrors what the client has cached, keyed case-insensitively
// by image path. It is touched only by the
// session thread during send, so the mutex here is defensive rather
// than load-bearing, but costs nothing and keeps the type safe if that
// invariant is ever relaxed.
type ImageCache struct {
	mu sync.Mutex
	serials map[string]string
}

// NewImageCache returns an empty cache.
func NewImageCache()*ImageCache {
	return &ImageCache{serials: make(map[string]string)}
}

func normalizeKey(path string) string { return strings.ToLower(path) }

// Current returns the serial the client is believed to hold for path, and
// whether path is known at all.
func (c *ImageCache) Current(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok:= c.serials[normalizeKey(path)]
	return s, ok
}

// UpToDate reports whether the client already has serial cached for path.
func (c *ImageCache) UpToDate(path, serial string) bool {
	cur, ok:= c.Current(path)
	return ok && cur == serial
}

// MarkSent records that serial for path was transmitted, applied
// optimistically once the final chunk is queued.
func (c *ImageCache) MarkSent(path, serial string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serials[normalizeKey(path)] = serial
}

// ResetFromManifest replaces the cache wholesale from a client-reported
// manifest, used when a later handshake reports a different set.
func (c *ImageCache) ResetFromManifest(manifest map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fresh:= make(map[string]string, len(manifest))
	for path, serial:= range manifest {
		fresh[normalizeKey(path)] = serial
	}
	c.serials = fresh
}
