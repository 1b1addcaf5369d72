package listing

import "time"

// Purity is the gold fineness classification of a product.
type Purity string

const (
	Purity24K     Purity = "24K"
	Purity22K     Purity = "22K"
	Purity18K     Purity = "18K"
	Purity14K     Purity = "14K"
	PurityUnknown Purity = ""
)

// Factor returns the fraction of pure gold for a purity class.
func (p Purity) Factor() float64 {
	switch p {
	case Purity24K:
		return 0.999
	case Purity22K:
		return 0.9167
	case Purity18K:
		return 0.750
	case Purity14K:
		return 0.585
	}
	return 0
}

func (p Purity) Known() bool { return p != PurityUnknown }

// All purity classes a product can carry, highest first.
var Purities = []Purity{Purity24K, Purity22K, Purity18K, Purity14K}

// ProductType distinguishes investment pieces from ornaments.
type ProductType string

const (
	TypeCoin      ProductType = "coin"
	TypeJewellery ProductType = "jewellery"
)

// RawListing is an unevaluated product as delivered by a marketplace scraper.
type RawListing struct {
	Source        string  `json:"source"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	SellingPrice  float64 `json:"selling_price"`
	OriginalPrice float64 `json:"original_price"`
	URL           string  `json:"url"`
	ImageURL      string  `json:"image_url"`
	Brand         string  `json:"brand"`
}

// Product is a fully evaluated listing: raw fields plus parsed attributes,
// the expected fair price and the resulting discount.
type Product struct {
	Source      string `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	WeightGrams float64     `json:"weight_grams"`
	Purity      Purity      `json:"purity"`
	ProductType ProductType `json:"product_type"`
	IsJewellery bool        `json:"is_jewellery"`

	SellingPrice  float64 `json:"selling_price"`
	OriginalPrice float64 `json:"original_price,omitempty"`
	ExpectedPrice float64 `json:"expected_price"`

	DiscountPercent float64 `json:"discount_percent"`
	PricePerGram    float64 `json:"price_per_gram"`

	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
	Brand    string `json:"brand"`

	SpotPrice            float64 `json:"spot_price"`
	MakingChargesPercent float64 `json:"making_charges_percent"`
	GSTPercent           float64 `json:"gst_percent"`

	Timestamp time.Time `json:"timestamp"`
	ScanID    string    `json:"scan_id,omitempty"`
}
