package spot

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/observability"
)

// CacheConfig holds cache construction parameters. Zero values fall back to
// the defaults documented on each field.
type CacheConfig struct {
	Path             string        // snapshot file, required
	Sources          []Source      // tried in order, required
	TTL              time.Duration // snapshot validity window, default 5m
	MinFetchInterval time.Duration // process-wide inter-fetch floor, default 2s
	SourceTimeout    time.Duration // per-source fetch budget, default 15s
	FloorPerGram     float64       // last-resort 24K price, default FloorPerGram
}

// Cache fetches and caches the authoritative spot price. There is one logical
// cache per process: construct it once and hand the same instance to every
// pricing caller. Get never fails; when every upstream is down it degrades to
// the last persisted snapshot and finally to a hardcoded floor.
type Cache struct {
	path         string
	sources      []Source
	ttl          time.Duration
	minInterval  time.Duration
	timeout      time.Duration
	floorPerGram float64
	client       *http.Client

	mu        sync.Mutex
	lastFetch time.Time
}

func NewCache(cfg CacheConfig) *Cache {
	c := &Cache{
		path:         cfg.Path,
		sources:      cfg.Sources,
		ttl:          cfg.TTL,
		minInterval:  cfg.MinFetchInterval,
		timeout:      cfg.SourceTimeout,
		floorPerGram: cfg.FloorPerGram,
	}
	if c.ttl <= 0 {
		c.ttl = 5 * time.Minute
	}
	if c.minInterval <= 0 {
		c.minInterval = 2 * time.Second
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	if c.floorPerGram <= 0 {
		c.floorPerGram = FloorPerGram
	}
	c.client = &http.Client{Timeout: c.timeout}
	return c
}

// Get returns the current snapshot, refreshing from upstream when the cached
// one has expired or force is set. The whole read-check-fetch-persist sequence
// runs under one mutex, so concurrent callers on a cold cache trigger exactly
// one upstream fetch and then observe the persisted result.
func (c *Cache) Get(ctx context.Context, force bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, hasStored := c.read()
	if !force && hasStored && time.Since(stored.Timestamp) < c.ttl {
		return stored
	}

	// Avoid hammering upstreams when many callers miss the cache at once:
	// within the inter-fetch interval, serve the stale snapshot re-tagged.
	if !force && hasStored && time.Since(c.lastFetch) < c.minInterval {
		stored.Source = SourceCachedFallback
		return stored
	}

	c.lastFetch = time.Now()
	for _, src := range c.sources {
		sctx, cancel := context.WithTimeout(ctx, c.timeout)
		xau, xag, raw, err := src.Fetch(sctx, c.client)
		cancel()
		if err != nil {
			observability.SpotFetches.WithLabelValues(src.Name, "error").Inc()
			log.Printf("[spot] %s failed: %v", src.Name, err)
			continue
		}
		observability.SpotFetches.WithLabelValues(src.Name, "ok").Inc()
		snap := newSnapshot(xau/OzToGram, xag/OzToGram, raw, SourceLive)
		if err := c.persist(snap); err != nil {
			log.Printf("[spot] persist snapshot: %v", err)
		}
		log.Printf("[spot] fetched from %s: %.2f INR/g", src.Name, snap.SpotPerGram)
		return snap
	}

	if hasStored {
		log.Printf("[spot] all sources failed, serving cached snapshot from %s", stored.Timestamp.Format(time.RFC3339))
		stored.Source = SourceCachedFallback
		stored.Timestamp = time.Now().UTC()
		return stored
	}

	log.Printf("[spot] all sources failed and no cache exists, using hardcoded floor")
	return newSnapshot(c.floorPerGram, c.floorPerGram/80, nil, SourceHardcodedFallback)
}

func (c *Cache) read() (Snapshot, bool) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		log.Printf("[spot] corrupt cache file: %v", err)
		return Snapshot{}, false
	}
	if !snap.Valid() {
		return Snapshot{}, false
	}
	return snap, true
}

// persist writes the snapshot with the temp-file-plus-rename discipline so a
// concurrent reader never observes a half-written record.
func (c *Cache) persist(snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".bullion-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
