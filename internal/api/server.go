package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/spot"
	"github.com/yashypsoft/gold-deal-finder/internal/store"
)

// ScanRunner triggers a scan cycle on demand.
type ScanRunner interface {
	TriggerScan(ctx context.Context) error
}

// SnapshotGetter exposes the current spot snapshot.
type SnapshotGetter interface {
	Get(ctx context.Context, force bool) spot.Snapshot
}

// Server is the read-mostly dashboard API over the scan history store.
type Server struct {
	store   *store.Store
	cache   SnapshotGetter
	runner  ScanRunner
	scanBusy atomic.Bool

	respMu    sync.Mutex
	responses map[string]cachedResponse
}

type cachedResponse struct {
	body    []byte
	expires time.Time
}

const responseTTL = 60 * time.Second

func NewServer(st *store.Store, cache SnapshotGetter, runner ScanRunner) *Server {
	return &Server{
		store:     st,
		cache:     cache,
		runner:    runner,
		responses: map[string]cachedResponse{},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/spot-price", s.handleSpotPrice)
	mux.HandleFunc("GET /api/v1/products/latest", s.handleLatestProducts)
	mux.HandleFunc("GET /api/v1/historical/scans", s.handleScans)
	mux.HandleFunc("GET /api/v1/historical/scan/{id}", s.handleScan)
	mux.HandleFunc("GET /api/v1/historical/products", s.handleProducts)
	mux.HandleFunc("GET /api/v1/historical/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/historical/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/v1/stats/summary", s.handleStats)
	mux.HandleFunc("POST /api/v1/scan", s.handleTriggerScan)
	return mux
}

// ListenAndServe blocks until the context is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("[api] listening on :%s", port)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleSpotPrice(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	snap := s.cache.Get(r.Context(), force)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLatestProducts(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func(ctx context.Context) (any, error) {
		return s.store.LatestProducts(ctx, queryInt(r, "limit", 100))
	})
}

func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func(ctx context.Context) (any, error) {
		return s.store.ListScans(ctx, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	scanID := r.PathValue("id")
	products, err := s.store.ScanProducts(r.Context(), scanID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(products) == 0 {
		writeError(w, http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scan_id":  scanID,
		"products": products,
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func(ctx context.Context) (any, error) {
		f := store.ProductFilter{
			Source:    r.URL.Query().Get("source"),
			Purity:    r.URL.Query().Get("purity"),
			DealsOnly: r.URL.Query().Get("deals_only") == "true",
			Limit:     queryInt(r, "limit", 100),
			Offset:    queryInt(r, "offset", 0),
		}
		if v := r.URL.Query().Get("min_discount"); v != "" {
			if min, err := strconv.ParseFloat(v, 64); err == nil {
				f.MinDiscount = &min
			}
		}
		return s.store.Products(ctx, f)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func(ctx context.Context) (any, error) {
		return s.store.Stats(ctx)
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func(ctx context.Context) (any, error) {
		return s.store.Timeline(ctx, queryInt(r, "days", 30))
	})
}

// handleTriggerScan starts a scan in the background. Only one manual scan may
// run at a time.
func (s *Server) handleTriggerScan(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, nil)
		return
	}
	if !s.scanBusy.CompareAndSwap(false, true) {
		writeJSON(w, http.StatusConflict, map[string]any{"status": "scan already in progress"})
		return
	}
	go func() {
		defer s.scanBusy.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.runner.TriggerScan(ctx); err != nil {
			log.Printf("[api] triggered scan failed: %v", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "scan started"})
}

// cached serves the handler's JSON through a short per-URL response cache so
// dashboard polling does not hammer the store.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) (any, error)) {
	key := r.URL.String()

	s.respMu.Lock()
	if c, ok := s.responses[key]; ok && time.Now().Before(c.expires) {
		s.respMu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		w.Write(c.body)
		return
	}
	s.respMu.Unlock()

	v, err := fn(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.respMu.Lock()
	s.responses[key] = cachedResponse{body: body, expires: time.Now().Add(responseTTL)}
	s.respMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		log.Printf("[api] %d: %v", status, err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
