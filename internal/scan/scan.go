package scan

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yashypsoft/gold-deal-finder/internal/deals"
	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/observability"
	"github.com/yashypsoft/gold-deal-finder/internal/parse"
	"github.com/yashypsoft/gold-deal-finder/internal/pricing"
	"github.com/yashypsoft/gold-deal-finder/internal/scrape"
	"github.com/yashypsoft/gold-deal-finder/internal/store"
)

// Notifier receives the outcome of a scan cycle. Implementations must not
// block for long; alerts are sent after persistence.
type Notifier interface {
	SendBulkAlerts(ctx context.Context, deals []listing.Product, total int) error
}

// Report summarizes one completed scan cycle.
type Report struct {
	ScanID        string
	StartedAt     time.Time
	Duration      time.Duration
	TotalProducts int
	GoodDeals     int
	Products      []listing.Product
	Deals         []listing.Product
}

// Pipeline runs the full scrape, evaluate, filter, persist, alert sequence.
type Pipeline struct {
	scrapers []scrape.Scraper
	calc     *pricing.Calculator
	eval     *deals.Evaluator
	store    *store.Store
	notifier Notifier
	workers  int
}

func NewPipeline(scrapers []scrape.Scraper, calc *pricing.Calculator, eval *deals.Evaluator, st *store.Store, notifier Notifier, workers int) *Pipeline {
	if workers <= 0 {
		workers = 8
	}
	return &Pipeline{
		scrapers: scrapers,
		calc:     calc,
		eval:     eval,
		store:    st,
		notifier: notifier,
		workers:  workers,
	}
}

// Run executes one scan cycle and returns its report. Scraper and notifier
// failures are logged, not fatal; a store failure aborts the cycle.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	scanID := uuid.NewString()
	log.Printf("[scan] %s: starting with %d scrapers", scanID, len(p.scrapers))

	raws := scrape.All(ctx, p.scrapers)
	log.Printf("[scan] %s: %d raw listings", scanID, len(raws))

	products := p.evaluate(ctx, scanID, raws)
	goodDeals := p.eval.FilterAndRank(products)

	report := Report{
		ScanID:        scanID,
		StartedAt:     started,
		Duration:      time.Since(started),
		TotalProducts: len(products),
		GoodDeals:     len(goodDeals),
		Products:      products,
		Deals:         goodDeals,
	}

	if p.store != nil {
		err := p.store.SaveScan(ctx, store.Batch{
			ScanID:    scanID,
			Timestamp: started,
			Duration:  report.Duration,
			Products:  products,
			Deals:     goodDeals,
		})
		if err != nil {
			return report, err
		}
	}

	observability.ScansTotal.Inc()
	observability.ProductsScanned.Add(float64(len(products)))
	observability.DealsFound.Add(float64(len(goodDeals)))

	if p.notifier != nil {
		if err := p.notifier.SendBulkAlerts(ctx, goodDeals, len(products)); err != nil {
			log.Printf("[scan] %s: alerts failed: %v", scanID, err)
		}
	}

	log.Printf("[scan] %s: done in %s, %d products, %d deals",
		scanID, report.Duration.Round(time.Millisecond), len(products), len(goodDeals))
	return report, nil
}

// evaluate turns raw listings into fully priced products across the worker
// pool. Listings with no recognizable weight or purity are dropped.
func (p *Pipeline) evaluate(ctx context.Context, scanID string, raws []listing.RawListing) []listing.Product {
	var (
		mu  sync.Mutex
		out []listing.Product
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, p.workers)
	for _, raw := range raws {
		wg.Add(1)
		sem <- struct{}{}
		go func(raw listing.RawListing) {
			defer wg.Done()
			defer func() { <-sem }()

			product, ok := p.evaluateOne(ctx, scanID, raw)
			if !ok {
				return
			}
			mu.Lock()
			out = append(out, product)
			mu.Unlock()
		}(raw)
	}
	wg.Wait()
	return out
}

func (p *Pipeline) evaluateOne(ctx context.Context, scanID string, raw listing.RawListing) (listing.Product, bool) {
	if raw.SellingPrice <= 0 {
		return listing.Product{}, false
	}
	purity, weight, ok := parse.Parse(raw.Title)
	if !ok || !purity.Known() {
		return listing.Product{}, false
	}

	ptype := parse.Classify(raw.Title, raw.Description)
	result := p.calc.ExpectedPrice(ctx, weight, purity, ptype)
	discount := p.calc.DiscountPercent(raw.SellingPrice, result.TotalExpected)

	return listing.Product{
		Source:               raw.Source,
		Title:                raw.Title,
		Description:          raw.Description,
		WeightGrams:          weight,
		Purity:               purity,
		ProductType:          ptype,
		IsJewellery:          ptype == listing.TypeJewellery,
		SellingPrice:         raw.SellingPrice,
		OriginalPrice:        raw.OriginalPrice,
		ExpectedPrice:        result.TotalExpected,
		DiscountPercent:      discount,
		PricePerGram:         round2(raw.SellingPrice / weight),
		URL:                  raw.URL,
		ImageURL:             raw.ImageURL,
		Brand:                raw.Brand,
		SpotPrice:            result.SpotPerGram,
		MakingChargesPercent: result.MakingChargesPercent,
		GSTPercent:           result.GSTPercent,
		Timestamp:            time.Now(),
		ScanID:               scanID,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
