package scrape

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

// A Scraper pulls raw gold listings from one marketplace. Scrapers are the
// external retrieval collaborators; the pricing core never calls them.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]listing.RawListing, error)
}

// All runs every scraper concurrently and merges the results. A failing
// scraper is logged and contributes nothing; it never aborts the batch.
func All(ctx context.Context, scrapers []Scraper) []listing.RawListing {
	var (
		mu  sync.Mutex
		out []listing.RawListing
		wg  sync.WaitGroup
	)
	for _, s := range scrapers {
		wg.Add(1)
		go func(s Scraper) {
			defer wg.Done()
			raws, err := s.Scrape(ctx)
			if err != nil {
				log.Printf("[scrape] %s: %v", s.Name(), err)
				return
			}
			log.Printf("[scrape] %s: %d listings", s.Name(), len(raws))
			mu.Lock()
			out = append(out, raws...)
			mu.Unlock()
		}(s)
	}
	wg.Wait()
	return out
}

// isGoldListing drops products whose text never mentions gold, and silver
// items that happen to show up in gold searches.
func isGoldListing(title, description string) bool {
	t := strings.ToLower(title)
	d := strings.ToLower(description)
	if strings.Contains(t, "silver") {
		return false
	}
	return strings.Contains(t, "gold") || strings.Contains(d, "gold")
}
