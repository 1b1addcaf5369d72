package deals

import (
	"fmt"
	"testing"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

func product(title string, discount float64) listing.Product {
	return listing.Product{
		Source:          "AJIO",
		Title:           title,
		WeightGrams:     10,
		Purity:          listing.Purity22K,
		SellingPrice:    50000,
		PricePerGram:    5000,
		DiscountPercent: discount,
	}
}

func TestAdmission(t *testing.T) {
	t.Parallel()

	eval := NewEvaluator(DefaultPolicy())

	cases := []struct {
		name    string
		mutate  func(*listing.Product)
		desired bool
	}{
		{"baseline passes", func(p *listing.Product) {}, true},
		{"slightly negative discount passes", func(p *listing.Product) { p.DiscountPercent = -0.5 }, true},
		{"below minimum discount", func(p *listing.Product) { p.DiscountPercent = -2 }, false},
		{"below minimum weight", func(p *listing.Product) { p.WeightGrams = 0.3 }, false},
		{"price at floor", func(p *listing.Product) { p.SellingPrice = 1000 }, false},
		{"per gram over purity cap", func(p *listing.Product) { p.PricePerGram = 17500 }, false},
		{"unknown purity uses default cap", func(p *listing.Product) {
			p.Purity = listing.PurityUnknown
			p.PricePerGram = 14500
		}, false},
	}

	for i, tc := range cases {
		tc, i := tc, i
		t.Run(tc.name, func(t *testing.T) {
			p := product(fmt.Sprintf("22K Gold Coin variant %d", i), 5)
			tc.mutate(&p)
			got := eval.FilterAndRank([]listing.Product{p})
			if admitted := len(got) == 1; admitted != tc.desired {
				t.Fatalf("admitted = %v, want %v", admitted, tc.desired)
			}
		})
	}
}

func TestDedupeAcrossCycles(t *testing.T) {
	t.Parallel()

	eval := NewEvaluator(DefaultPolicy())
	p := product("22K Gold Coin 10g", 8)

	first := eval.FilterAndRank([]listing.Product{p})
	if len(first) != 1 {
		t.Fatalf("first cycle admitted %d, want 1", len(first))
	}
	second := eval.FilterAndRank([]listing.Product{p})
	if len(second) != 0 {
		t.Fatalf("second cycle admitted %d, want 0 for a repeated listing", len(second))
	}

	// Same title from a different source is a different deal.
	other := p
	other.Source = "Myntra"
	third := eval.FilterAndRank([]listing.Product{other})
	if len(third) != 1 {
		t.Fatalf("other source admitted %d, want 1", len(third))
	}
}

func TestRankAscendingAndTruncate(t *testing.T) {
	t.Parallel()

	eval := NewEvaluator(DefaultPolicy())
	var products []listing.Product
	for i := 0; i < 6; i++ {
		products = append(products, product(fmt.Sprintf("22K Gold Coin lot %d", i), float64(i+2)))
	}

	got := eval.FilterAndRank(products)
	if len(got) != 4 {
		t.Fatalf("deals = %d, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].DiscountPercent > got[i].DiscountPercent {
			t.Fatalf("not ascending at %d: %g then %g", i, got[i-1].DiscountPercent, got[i].DiscountPercent)
		}
	}
}

func TestRankDescending(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.RankOrder = "desc"
	eval := NewEvaluator(policy)

	products := []listing.Product{
		product("22K Gold Coin small", 3),
		product("22K Gold Coin big", 12),
	}
	got := eval.FilterAndRank(products)
	if len(got) != 2 || got[0].DiscountPercent != 12 {
		t.Fatalf("descending order broken: %+v", got)
	}
}

func TestRecencySetEvictsOldest(t *testing.T) {
	t.Parallel()

	s := newRecencySet(3)
	for i := 0; i < 5; i++ {
		if !s.Add(fmt.Sprintf("key-%d", i)) {
			t.Fatalf("key-%d rejected on first add", i)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	// The two oldest were evicted and may be re-added.
	if !s.Add("key-0") {
		t.Fatal("evicted key must be addable again")
	}
	if s.Add("key-4") {
		t.Fatal("recent key must still be deduped")
	}
}
