package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/utils"
)

// Myntra scrapes the Myntra search gateway. The gateway rejects cookie-less
// requests, so each session is primed by visiting the site first.
type Myntra struct {
	pages   int
	workers int
	timeout time.Duration
}

func NewMyntra() *Myntra {
	return &Myntra{pages: 12, workers: 5, timeout: 20 * time.Second}
}

func (m *Myntra) Name() string { return "Myntra" }

const myntraUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (m *Myntra) Scrape(ctx context.Context) ([]listing.RawListing, error) {
	var (
		mu  sync.Mutex
		out []listing.RawListing
		wg  sync.WaitGroup
	)
	sem := make(chan struct{}, m.workers)
	for page := 1; page <= m.pages; page++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(page int) {
			defer wg.Done()
			defer func() { <-sem }()

			var raws []listing.RawListing
			err := utils.Retry(fmt.Sprintf("myntra page %d", page), 3, time.Second, func() error {
				var ferr error
				raws, ferr = m.fetchPage(ctx, page)
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
		return nil, fmt.Errorf("myntra: no listings from %d pages", m.pages)
	}
	return out, nil
}

// newSession visits the homepage and category page so the gateway sees a
// browser-like cookie trail, then pins the delivery pincode.
func (m *Myntra) newSession(ctx context.Context) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar, Timeout: m.timeout}

	for _, u := range []string{"https://www.myntra.com", "https://www.myntra.com/gold-coin"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", myntraUA)
		req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
	}

	base, _ := url.Parse("https://www.myntra.com")
	client.Jar.SetCookies(base, []*http.Cookie{{
		Name:   "mynt-ulc",
		Value:  "pincode:384345|addressId:",
		Domain: ".myntra.com",
		Path:   "/",
	}})
	return client, nil
}

func (m *Myntra) fetchPage(ctx context.Context, page int) ([]listing.RawListing, error) {
	client, err := m.newSession(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"rows":    {"50"},
		"o":       {strconv.Itoa(49*(page-1) + 1)},
		"pincode": {"384315"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.myntra.com/gateway/v4/search/gold-coin?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", myntraUA)
	req.Header.Set("referer", "https://www.myntra.com/gold-coin")
	req.Header.Set("x-meta-app", "channel=web")
	req.Header.Set("x-myntraweb", "Yes")
	req.Header.Set("x-requested-with", "browser")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("myntra page %d: http %d", page, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return parseMyntraPage(body)
}

type myntraProduct struct {
	ProductName    string          `json:"productName"`
	Price          json.RawMessage `json:"price"`
	LandingPageURL string          `json:"landingPageUrl"`
	SearchImage    string          `json:"searchImage"`
	BrandName      string          `json:"brandName"`
}

func parseMyntraPage(body []byte) ([]listing.RawListing, error) {
	var payload struct {
		Products []myntraProduct `json:"products"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("myntra decode: %w", err)
	}

	var out []listing.RawListing
	for _, p := range payload.Products {
		if p.ProductName == "" || !isGoldListing(p.ProductName, "") {
			continue
		}
		selling, original := extractMyntraPrice(p.Price)
		if selling <= 0 {
			continue
		}
		landingURL := p.LandingPageURL
		if landingURL != "" && !strings.HasPrefix(landingURL, "http") {
			landingURL = "https://www.myntra.com/" + landingURL
		}
		brand := p.BrandName
		if brand == "" {
			brand = "Unknown"
		}
		out = append(out, listing.RawListing{
			Source:        "Myntra",
			Title:         p.ProductName,
			SellingPrice:  selling,
			OriginalPrice: original,
			URL:           landingURL,
			ImageURL:      p.SearchImage,
			Brand:         brand,
		})
	}
	return out, nil
}

// extractMyntraPrice tolerates the gateway's three price shapes: an object
// with discountedPrice/mrp, a bare number, or a numeric string.
func extractMyntraPrice(raw json.RawMessage) (selling, original float64) {
	if len(raw) == 0 {
		return 0, 0
	}

	var obj struct {
		DiscountedPrice float64 `json:"discountedPrice"`
		MRP             float64 `json:"mrp"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.DiscountedPrice > 0 || obj.MRP > 0) {
		selling = obj.DiscountedPrice
		original = obj.MRP
		if original == 0 {
			original = selling
		}
		return selling, original
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num, num
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return v, v
		}
	}
	return 0, 0
}
