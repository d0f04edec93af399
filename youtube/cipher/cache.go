package cipher

import "sync"

// ResolveFunc fetches a player script and parses it into a Manifest.
type ResolveFunc func() (*Manifest, error)

// Cache memoizes a single Manifest for the lifetime of one client session.
// The first caller to observe an empty cache performs the resolution;
// callers arriving while that resolution is in flight wait for and share
// its result instead of starting duplicate fetch and parse work. Failed
// resolutions are not cached, so the next caller retries with a fresh
// script.
type Cache struct {
	mu       sync.Mutex
	manifest *Manifest
	inflight *inflightResolve
}

type inflightResolve struct {
	done     chan struct{}
	manifest *Manifest
	err      error
}

// GetOrResolve returns the cached manifest, or resolves one via resolve.
func (c *Cache) GetOrResolve(resolve ResolveFunc) (*Manifest, error) {
	c.mu.Lock()
	if c.manifest != nil {
		m := c.manifest
		c.mu.Unlock()
		return m, nil
	}
	if fl := c.inflight; fl != nil {
		c.mu.Unlock()
		<-fl.done
		return fl.manifest, fl.err
	}
	fl := &inflightResolve{done: make(chan struct{})}
	c.inflight = fl
	c.mu.Unlock()

	fl.manifest, fl.err = resolve()

	c.mu.Lock()
	if fl.err == nil {
		c.manifest = fl.manifest
	}
	c.inflight = nil
	c.mu.Unlock()
	close(fl.done)

	return fl.manifest, fl.err
}

// Invalidate drops the cached manifest so the next GetOrResolve call
// resolves again. Callers use this after a downstream decrypt failure that
// suggests the platform deployed a new player script mid-session. A
// resolution already in flight is unaffected.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.manifest = nil
	c.mu.Unlock()
}
