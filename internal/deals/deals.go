package deals

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

// Policy is the admission and ranking configuration for one deployment.
type Policy struct {
	MinDiscountPercent float64
	MinWeightGrams     float64
	PriceFloor         float64

	// MaxPricePerGram caps the accepted per-gram price by purity; purities
	// missing from the map use DefaultMaxPricePerGram. A nil map disables
	// the cap entirely.
	MaxPricePerGram        map[listing.Purity]float64
	DefaultMaxPricePerGram float64

	MaxDeals  int
	RankOrder string // "asc" or "desc" by discount percent
}

func DefaultPolicy() Policy {
	return Policy{
		MinDiscountPercent: -1,
		MinWeightGrams:     0.5,
		PriceFloor:         1000,
		MaxPricePerGram: map[listing.Purity]float64{
			listing.Purity24K: 18000,
			listing.Purity22K: 17000,
			listing.Purity18K: 16000,
			listing.Purity14K: 15000,
		},
		DefaultMaxPricePerGram: 14000,
		MaxDeals:               4,
		RankOrder:              "asc",
	}
}

// Evaluator filters evaluated listings into an ordered, size-bounded deal
// list. It remembers recently emitted deals across cycles so the same listing
// is not surfaced twice.
type Evaluator struct {
	policy Policy
	seen   *recencySet
}

func NewEvaluator(policy Policy) *Evaluator {
	if policy.MaxDeals <= 0 {
		policy.MaxDeals = 4
	}
	return &Evaluator{policy: policy, seen: newRecencySet(1000)}
}

// FilterAndRank applies the admission policy, suppresses listings emitted in a
// prior cycle, then sorts by discount and truncates to MaxDeals.
func (e *Evaluator) FilterAndRank(products []listing.Product) []listing.Product {
	var admitted []listing.Product
	for _, p := range products {
		if !e.admit(p) {
			continue
		}
		if !e.seen.Add(dealKey(p)) {
			continue
		}
		admitted = append(admitted, p)
	}

	sort.Slice(admitted, func(i, j int) bool {
		if e.policy.RankOrder == "desc" {
			return admitted[i].DiscountPercent > admitted[j].DiscountPercent
		}
		return admitted[i].DiscountPercent < admitted[j].DiscountPercent
	})

	if len(admitted) > e.policy.MaxDeals {
		admitted = admitted[:e.policy.MaxDeals]
	}
	return admitted
}

func (e *Evaluator) admit(p listing.Product) bool {
	if p.DiscountPercent < e.policy.MinDiscountPercent {
		return false
	}
	if p.WeightGrams < e.policy.MinWeightGrams {
		return false
	}
	if p.SellingPrice <= e.policy.PriceFloor {
		return false
	}
	if e.policy.MaxPricePerGram != nil {
		max, ok := e.policy.MaxPricePerGram[p.Purity]
		if !ok {
			max = e.policy.DefaultMaxPricePerGram
		}
		if max > 0 && p.PricePerGram > max {
			return false
		}
	}
	return true
}

// dealKey identifies a listing across cycles by source, title prefix and weight.
func dealKey(p listing.Product) string {
	title := p.Title
	if r := []rune(title); len(r) > 50 {
		title = string(r[:50])
	}
	return fmt.Sprintf("%s_%s_%g", p.Source, strings.ToLower(title), p.WeightGrams)
}

// recencySet is a bounded set that evicts its oldest entries once full.
type recencySet struct {
	mu    sync.Mutex
	max   int
	seen  map[string]struct{}
	order []string
}

func newRecencySet(max int) *recencySet {
	return &recencySet{max: max, seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *recencySet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, key)
	for len(s.order) > s.max {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

func (s *recencySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
