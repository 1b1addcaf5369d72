package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/spot"
	"github.com/yashypsoft/gold-deal-finder/internal/store"
)

type fakeCache struct{ snap spot.Snapshot }

func (f fakeCache) Get(ctx context.Context, force bool) spot.Snapshot { return f.snap }

type fakeRunner struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int64
}

func (f *fakeRunner) TriggerScan(ctx context.Context) error {
	f.runs.Add(1)
	close(f.started)
	<-f.release
	return nil
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	coin := listing.Product{
		Source:          "AJIO",
		Title:           "22K Gold Coin 10g",
		WeightGrams:     10,
		Purity:          listing.Purity22K,
		ProductType:     listing.TypeCoin,
		SellingPrice:    50000,
		ExpectedPrice:   55002,
		DiscountPercent: 9.09,
		PricePerGram:    5000,
		Timestamp:       time.Now(),
	}
	err = st.SaveScan(context.Background(), store.Batch{
		ScanID:    "scan-1",
		Timestamp: time.Now(),
		Duration:  time.Second,
		Products:  []listing.Product{coin},
		Deals:     []listing.Product{coin},
	})
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return st
}

func newTestServer(t *testing.T, runner ScanRunner) *httptest.Server {
	t.Helper()
	snap := spot.Snapshot{
		Timestamp:     time.Now().UTC(),
		Source:        spot.SourceLive,
		SpotPerGram:   6000,
		LandedPerGram: 6660,
	}
	srv := NewServer(seededStore(t), fakeCache{snap}, runner)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, into any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestHealthAndSpot(t *testing.T) {
	ts := newTestServer(t, nil)

	var health map[string]any
	getJSON(t, ts.URL+"/api/v1/health", &health)
	if health["status"] != "ok" {
		t.Fatalf("health = %v", health)
	}

	var snap spot.Snapshot
	getJSON(t, ts.URL+"/api/v1/spot-price", &snap)
	if snap.SpotPerGram != 6000 {
		t.Fatalf("spot = %g", snap.SpotPerGram)
	}
}

func TestHistoricalEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	var scans []store.ScanSummary
	getJSON(t, ts.URL+"/api/v1/historical/scans", &scans)
	if len(scans) != 1 || scans[0].ScanID != "scan-1" {
		t.Fatalf("scans = %+v", scans)
	}

	var detail struct {
		ScanID   string            `json:"scan_id"`
		Products []listing.Product `json:"products"`
	}
	getJSON(t, ts.URL+"/api/v1/historical/scan/scan-1", &detail)
	if detail.ScanID != "scan-1" || len(detail.Products) != 1 {
		t.Fatalf("detail = %+v", detail)
	}

	resp, err := http.Get(ts.URL + "/api/v1/historical/scan/no-such-scan")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing scan status = %d, want 404", resp.StatusCode)
	}

	var products []listing.Product
	getJSON(t, ts.URL+"/api/v1/historical/products?deals_only=true", &products)
	if len(products) != 1 || products[0].DiscountPercent != 9.09 {
		t.Fatalf("products = %+v", products)
	}

	var stats store.Stats
	getJSON(t, ts.URL+"/api/v1/historical/stats", &stats)
	if stats.TotalScans != 1 || stats.TotalGoodDeals != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	var timeline []store.TimelinePoint
	getJSON(t, ts.URL+"/api/v1/historical/timeline?days=7", &timeline)
	if len(timeline) != 1 {
		t.Fatalf("timeline = %+v", timeline)
	}
}

func TestLatestProducts(t *testing.T) {
	ts := newTestServer(t, nil)

	var products []listing.Product
	getJSON(t, ts.URL+"/api/v1/products/latest", &products)
	if len(products) != 1 || products[0].ScanID != "scan-1" {
		t.Fatalf("latest = %+v", products)
	}
}

func TestTriggerScanConflicts(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ts := newTestServer(t, runner)

	resp, err := http.Post(ts.URL+"/api/v1/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first trigger status = %d, want 202", resp.StatusCode)
	}

	<-runner.started
	resp, err = http.Post(ts.URL+"/api/v1/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("concurrent trigger status = %d, want 409", resp.StatusCode)
	}

	close(runner.release)
	deadline := time.Now().Add(2 * time.Second)
	for runner.runs.Load() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if runner.runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runner.runs.Load())
	}
}
