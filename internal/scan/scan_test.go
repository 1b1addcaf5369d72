package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/deals"
	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/pricing"
	"github.com/yashypsoft/gold-deal-finder/internal/scrape"
	"github.com/yashypsoft/gold-deal-finder/internal/spot"
)

type fakeScraper struct {
	name string
	raws []listing.RawListing
	err  error
}

func (f fakeScraper) Name() string { return f.name }
func (f fakeScraper) Scrape(ctx context.Context) ([]listing.RawListing, error) {
	return f.raws, f.err
}

type fakeCache struct{ snap spot.Snapshot }

func (f fakeCache) Get(ctx context.Context, force bool) spot.Snapshot { return f.snap }

type captureNotifier struct {
	deals []listing.Product
	total int
	calls int
}

func (c *captureNotifier) SendBulkAlerts(ctx context.Context, deals []listing.Product, total int) error {
	c.calls++
	c.deals = deals
	c.total = total
	return nil
}

func testCalculator() *pricing.Calculator {
	karat := make(map[listing.Purity]float64)
	for _, p := range listing.Purities {
		karat[p] = 6000 * p.Factor()
	}
	snap := spot.Snapshot{
		Timestamp:     time.Now().UTC(),
		Source:        spot.SourceLive,
		SpotPerGram:   6000 / spot.LandedMultiplier,
		LandedPerGram: 6000,
		KaratPerGram:  karat,
	}
	return pricing.NewCalculator(fakeCache{snap}, pricing.DefaultPolicy())
}

func TestPipelineRun(t *testing.T) {
	scraper := fakeScraper{
		name: "fake",
		raws: []listing.RawListing{
			// Priced well under the 22K metal value, a clear deal.
			{Source: "AJIO", Title: "22K Gold Coin 10 Gm", SellingPrice: 50000},
			// Heavily overpriced, kept as a product but never a deal.
			{Source: "AJIO", Title: "24K Gold Bar 5g", SellingPrice: 93000},
			// Unparseable title, dropped entirely.
			{Source: "AJIO", Title: "Pretty Gold Thing", SellingPrice: 9999},
			// No purity marker, dropped.
			{Source: "AJIO", Title: "Gold Coin 10 gram", SellingPrice: 50000},
			// Zero price, dropped.
			{Source: "AJIO", Title: "22K Gold Coin 5g", SellingPrice: 0},
		},
	}
	notifier := &captureNotifier{}
	p := NewPipeline([]scrape.Scraper{scraper}, testCalculator(),
		deals.NewEvaluator(deals.DefaultPolicy()), nil, notifier, 4)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.ScanID == "" {
		t.Fatal("missing scan id")
	}
	if report.TotalProducts != 2 {
		t.Fatalf("products = %d, want 2", report.TotalProducts)
	}
	if report.GoodDeals != 1 {
		t.Fatalf("deals = %d, want 1", report.GoodDeals)
	}

	deal := report.Deals[0]
	if deal.Title != "22K Gold Coin 10 Gm" {
		t.Fatalf("deal = %q", deal.Title)
	}
	if deal.Purity != listing.Purity22K || deal.WeightGrams != 10 {
		t.Fatalf("parsed attributes = %s/%g", deal.Purity, deal.WeightGrams)
	}
	if deal.DiscountPercent <= 5 {
		t.Fatalf("discount = %g, expected a clear positive discount", deal.DiscountPercent)
	}
	if deal.ScanID != report.ScanID {
		t.Fatalf("deal scan id = %q, report %q", deal.ScanID, report.ScanID)
	}
	if deal.PricePerGram != 5000 {
		t.Fatalf("per gram = %g, want 5000", deal.PricePerGram)
	}

	if notifier.calls != 1 || notifier.total != 2 || len(notifier.deals) != 1 {
		t.Fatalf("notifier saw %d calls, %d total, %d deals", notifier.calls, notifier.total, len(notifier.deals))
	}
}

func TestPipelineSurvivesScraperFailure(t *testing.T) {
	dead := fakeScraper{name: "dead", err: errors.New("blocked")}
	alive := fakeScraper{
		name: "alive",
		raws: []listing.RawListing{
			{Source: "Myntra", Title: "22K Gold Coin 5 Gm", SellingPrice: 26000},
		},
	}
	p := NewPipeline([]scrape.Scraper{dead, alive}, testCalculator(),
		deals.NewEvaluator(deals.DefaultPolicy()), nil, nil, 2)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalProducts != 1 {
		t.Fatalf("products = %d, want 1 from the surviving scraper", report.TotalProducts)
	}
}
