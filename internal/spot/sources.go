package spot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// A Source fetches the gold and silver price per troy ounce in INR from one
// upstream provider. Sources are tried in priority order; each has its own
// response parser.
type Source struct {
	Name  string
	Fetch func(ctx context.Context, client *http.Client) (xau, xag float64, raw []byte, err error)
}

// Sources returns the upstream chain in priority order. goldprice.org needs
// no credentials and is always first; the paid providers join the chain only
// when their keys are configured.
func Sources(metalPriceKey, goldAPIToken string) []Source {
	srcs := []Source{{Name: "goldprice.org", Fetch: fetchGoldPriceOrg}}
	if metalPriceKey != "" {
		srcs = append(srcs, Source{Name: "metalpriceapi", Fetch: fetchMetalPriceAPI(metalPriceKey)})
	}
	if goldAPIToken != "" {
		srcs = append(srcs, Source{Name: "goldapi", Fetch: fetchGoldAPI(goldAPIToken)})
	}
	return srcs
}

func fetchGoldPriceOrg(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
	body, err := httpGet(ctx, client, "https://data-asg.goldprice.org/dbXRates/INR", nil)
	if err != nil {
		return 0, 0, nil, err
	}
	var payload struct {
		Items []struct {
			XauPrice float64 `json:"xauPrice"`
			XagPrice float64 `json:"xagPrice"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, 0, nil, fmt.Errorf("goldprice decode: %w", err)
	}
	if len(payload.Items) == 0 || payload.Items[0].XauPrice <= 0 {
		return 0, 0, nil, fmt.Errorf("goldprice: empty rate set")
	}
	return payload.Items[0].XauPrice, payload.Items[0].XagPrice, body, nil
}

func fetchMetalPriceAPI(apiKey string) func(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
	return func(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
		u := "https://api.metalpriceapi.com/v1/latest?" + url.Values{
			"api_key":    {apiKey},
			"base":       {"XAU"},
			"currencies": {"INR"},
		}.Encode()
		body, err := httpGet(ctx, client, u, nil)
		if err != nil {
			return 0, 0, nil, err
		}
		var payload struct {
			Rates map[string]float64 `json:"rates"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return 0, 0, nil, fmt.Errorf("metalprice decode: %w", err)
		}
		perOunce, ok := payload.Rates["INR"]
		if !ok || perOunce <= 0 {
			return 0, 0, nil, fmt.Errorf("metalprice: missing INR rate")
		}
		// metalpriceapi quotes a standard ounce (28.3495g), not a troy ounce.
		xau := perOunce * (31.1035 / 28.3495)
		return xau, xau / 80, body, nil
	}
}

func fetchGoldAPI(token string) func(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
	return func(ctx context.Context, client *http.Client) (float64, float64, []byte, error) {
		body, err := httpGet(ctx, client, "https://www.goldapi.io/api/XAU/INR", map[string]string{"x-access-token": token})
		if err != nil {
			return 0, 0, nil, err
		}
		var payload struct {
			Price float64 `json:"price"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return 0, 0, nil, fmt.Errorf("goldapi decode: %w", err)
		}
		if payload.Price <= 0 {
			return 0, 0, nil, fmt.Errorf("goldapi: non-positive price")
		}
		return payload.Price, payload.Price / 80, body, nil
	}
}

func httpGet(ctx context.Context, client *http.Client, urlStr string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
