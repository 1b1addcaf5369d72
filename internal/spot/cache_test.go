package spot

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func countingSource(calls *atomic.Int64, perGram float64) Source {
	return Source{
		Name: "fake",
		Fetch: func(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
			calls.Add(1)
			return perGram * OzToGram, perGram * OzToGram / 80, nil, nil
		},
	}
}

func failingSource() Source {
	return Source{
		Name: "down",
		Fetch: func(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
			return 0, 0, nil, errors.New("connection refused")
		},
	}
}

func TestGetNeverFails(t *testing.T) {
	c := NewCache(CacheConfig{
		Path:    filepath.Join(t.TempDir(), "cache.json"),
		Sources: []Source{failingSource(), failingSource()},
	})

	snap := c.Get(context.Background(), false)
	if snap.Source != SourceHardcodedFallback {
		t.Fatalf("source = %q, want %q", snap.Source, SourceHardcodedFallback)
	}
	if snap.SpotPerGram != FloorPerGram {
		t.Fatalf("spot = %g, want floor %g", snap.SpotPerGram, float64(FloorPerGram))
	}
	if !snap.Valid() {
		t.Fatal("floor snapshot must be valid")
	}
}

func TestGetFetchesOnceWithinTTL(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(CacheConfig{
		Path:    filepath.Join(t.TempDir(), "cache.json"),
		Sources: []Source{countingSource(&calls, 6000)},
		TTL:     time.Hour,
	})

	first := c.Get(context.Background(), false)
	if first.Source != SourceLive {
		t.Fatalf("source = %q, want %q", first.Source, SourceLive)
	}
	if got := first.SpotPerGram; got < 5999.99 || got > 6000.01 {
		t.Fatalf("spot = %g, want 6000", got)
	}

	second := c.Get(context.Background(), false)
	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls.Load())
	}
	if second.SpotPerGram != first.SpotPerGram {
		t.Fatalf("cached spot = %g, want %g", second.SpotPerGram, first.SpotPerGram)
	}
}

func TestGetForceRefetches(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(CacheConfig{
		Path:    filepath.Join(t.TempDir(), "cache.json"),
		Sources: []Source{countingSource(&calls, 6000)},
		TTL:     time.Hour,
	})

	c.Get(context.Background(), false)
	c.Get(context.Background(), true)
	if calls.Load() != 2 {
		t.Fatalf("fetch calls = %d, want 2", calls.Load())
	}
}

func TestGetSingleFlight(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(CacheConfig{
		Path:    filepath.Join(t.TempDir(), "cache.json"),
		Sources: []Source{countingSource(&calls, 6000)},
		TTL:     time.Hour,
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := c.Get(context.Background(), false)
			if !snap.Valid() {
				t.Error("got invalid snapshot")
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1 for concurrent cold readers", calls.Load())
	}
}

func TestGetServesCachedWhenSourcesDie(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	stale := newSnapshot(6200, 80, nil, SourceLive)
	stale.Timestamp = time.Now().UTC().Add(-time.Hour)
	seed := &Cache{path: path}
	if err := seed.persist(stale); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	c := NewCache(CacheConfig{
		Path:    path,
		Sources: []Source{failingSource()},
		TTL:     time.Minute,
	})

	snap := c.Get(context.Background(), false)
	if snap.Source != SourceCachedFallback {
		t.Fatalf("source = %q, want %q", snap.Source, SourceCachedFallback)
	}
	if snap.SpotPerGram != stale.SpotPerGram {
		t.Fatalf("spot = %g, want cached %g", snap.SpotPerGram, stale.SpotPerGram)
	}
	if time.Since(snap.Timestamp) > time.Minute {
		t.Fatal("served fallback must carry a fresh timestamp")
	}
}

func TestGetThrottlesRepeatedMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	stale := newSnapshot(6200, 80, nil, SourceLive)
	stale.Timestamp = time.Now().UTC().Add(-time.Hour)
	seed := &Cache{path: path}
	if err := seed.persist(stale); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	var calls atomic.Int64
	c := NewCache(CacheConfig{
		Path:             path,
		Sources:          []Source{countingSource(&calls, 6000)},
		TTL:              time.Minute,
		MinFetchInterval: time.Hour,
	})
	c.lastFetch = time.Now()

	snap := c.Get(context.Background(), false)
	if calls.Load() != 0 {
		t.Fatalf("fetch calls = %d, want 0 inside the inter-fetch interval", calls.Load())
	}
	if snap.Source != SourceCachedFallback {
		t.Fatalf("source = %q, want %q", snap.Source, SourceCachedFallback)
	}
}

func TestSnapshotDerivedQuotes(t *testing.T) {
	snap := newSnapshot(6000, 75, nil, SourceLive)

	if snap.LandedPerGram != 6660 {
		t.Fatalf("landed = %g, want 6660", snap.LandedPerGram)
	}
	if snap.Gold.Retail999 != 66600+RetailSpread {
		t.Fatalf("retail 999 = %g", snap.Gold.Retail999)
	}
	if snap.Gold.RTGS999 != 66600-RTGSDiscount {
		t.Fatalf("rtgs 999 = %g", snap.Gold.RTGS999)
	}
	if want := 6660 * 0.9167; snap.KaratPerGram["22K"]-want > 0.01 || want-snap.KaratPerGram["22K"] > 0.01 {
		t.Fatalf("22K per gram = %g, want about %g", snap.KaratPerGram["22K"], want)
	}
}
