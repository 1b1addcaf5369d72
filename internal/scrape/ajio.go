package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/utils"
)

const ajioSearchURL = "https://www.ajio.com/api/search"

// AJIO scrapes the AJIO search API, which serves the same JSON the site's
// own frontend consumes.
type AJIO struct {
	client  *http.Client
	pages   int
	workers int
}

func NewAJIO() *AJIO {
	return &AJIO{
		client:  &http.Client{Timeout: 10 * time.Second},
		pages:   12,
		workers: 6,
	}
}

func (a *AJIO) Name() string { return "AJIO" }

func (a *AJIO) Scrape(ctx context.Context) ([]listing.RawListing, error) {
	var (
		mu  sync.Mutex
		out []listing.RawListing
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, a.workers)
	for page := 1; page <= a.pages; page++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(page int) {
			defer wg.Done()
			defer func() { <-sem }()

			var raws []listing.RawListing
			err := utils.Retry(fmt.Sprintf("ajio page %d", page), 3, time.Second, func() error {
				var ferr error
				raws, ferr = a.fetchPage(ctx, page)
				return ferr
			})
			if err != nil {
				return
			}
			mu.Lock()
			out = append(out, raws...)
			mu.Unlock()
		}(page)
	}
	wg.Wait()

	if len(out) == 0 {
		return nil, fmt.Errorf("ajio: no listings from %d pages", a.pages)
	}
	return out, nil
}

type ajioProduct struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Price       struct {
		Value float64 `json:"value"`
	} `json:"price"`
	OfferPrice struct {
		Value float64 `json:"value"`
	} `json:"offerPrice"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	FnlColorVariantData struct {
		BrandName string `json:"brandName"`
	} `json:"fnlColorVariantData"`
}

func (a *AJIO) fetchPage(ctx context.Context, page int) ([]listing.RawListing, error) {
	params := url.Values{
		"query":       {"gold coin:relevance"},
		"text":        {"gold coin"},
		"pageSize":    {"45"},
		"format":      {"json"},
		"fields":      {"SITE"},
		"pincode":     {"384315"},
		"state":       {"GUJARAT"},
		"city":        {"MAHESANA"},
		"currentPage": {fmt.Sprint(page)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ajioSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json, text/plain, */*")
	req.Header.Set("accept-language", "en-US,en;q=0.9")
	req.Header.Set("referer", "https://www.ajio.com/")
	req.Header.Set("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ajio page %d: http %d", page, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return parseAJIOPage(body)
}

func parseAJIOPage(body []byte) ([]listing.RawListing, error) {
	var payload struct {
		Products []ajioProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("ajio decode: %w", err)
	}

	var out []listing.RawListing
	for _, p := range payload.Products {
		if p.Name == "" || !isGoldListing(p.Name, p.Description) {
			continue
		}
		selling := p.OfferPrice.Value
		if selling <= 0 {
			selling = p.Price.Value
		}
		if selling <= 0 {
			continue
		}
		desc := p.Description
		if len(desc) > 200 {
			desc = desc[:200]
		}
		productURL := p.URL
		if productURL != "" && !strings.HasPrefix(productURL, "http") {
			productURL = "https://www.ajio.com" + productURL
		}
		imageURL := ""
		if len(p.Images) > 0 {
			imageURL = p.Images[0].URL
		}
		brand := p.FnlColorVariantData.BrandName
		if brand == "" {
			brand = "Unknown"
		}
		out = append(out, listing.RawListing{
			Source:        "AJIO",
			Title:         p.Name,
			Description:   desc,
			SellingPrice:  selling,
			OriginalPrice: p.Price.Value,
			URL:           productURL,
			ImageURL:      imageURL,
			Brand:         brand,
		})
	}
	return out, nil
}
