package spot

import (
	"encoding/json"
	"math"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

// SourceTag records where a snapshot came from so downstream code can make
// freshness-aware decisions without special-casing errors.
type SourceTag string

const (
	SourceLive              SourceTag = "live_api"
	SourceCachedFallback    SourceTag = "cached_fallback"
	SourceHardcodedFallback SourceTag = "hardcoded_fallback"
)

// Pricing constants for the Indian bullion market.
const (
	OzToGram         = 31.1035
	LandedMultiplier = 1.11
	RetailSpread     = 700 // per 10g
	RTGSDiscount     = 600 // per 10g

	// Flat retail premium a jeweller adds on top of 22K metal value, per 10g.
	JewelleryPremium10g = 1200
)

// Conservative 24K floor used when every upstream fails and no cache exists.
const FloorPerGram = 5800

// GoldQuotes are the derived 10g reference quotes included in a snapshot.
type GoldQuotes struct {
	Spot10g          float64 `json:"spot_10g"`
	Retail999        float64 `json:"retail_999_10g"`
	RTGS999          float64 `json:"rtgs_999_10g"`
	Retail22K        float64 `json:"retail_22k_10g"`
	Landed999PerGram float64 `json:"999_landed_per_gram"`
	Landed22KPerGram float64 `json:"22k_landed_per_gram"`
}

// Snapshot is one immutable spot price observation. Each refresh produces a
// new snapshot; the cache never mutates one in place.
type Snapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Source        SourceTag `json:"source"`
	SpotPerGram   float64   `json:"spot_price_per_gram"`
	LandedPerGram float64   `json:"landed_price_per_gram"`
	SilverPerGram float64   `json:"silver_per_gram"`

	// Landed per-gram price for each purity class.
	KaratPerGram map[listing.Purity]float64 `json:"karat_per_gram,omitempty"`

	Gold GoldQuotes `json:"gold"`

	// Raw upstream payload, kept for diagnostics only.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Valid reports whether a snapshot carries a usable price.
func (s Snapshot) Valid() bool {
	return !s.Timestamp.IsZero() && s.SpotPerGram > 0
}

// newSnapshot derives a full snapshot from per-gram 24K gold and silver prices.
func newSnapshot(goldPerGram, silverPerGram float64, raw []byte, tag SourceTag) Snapshot {
	if silverPerGram <= 0 {
		silverPerGram = goldPerGram / 80
	}
	landed := goldPerGram * LandedMultiplier
	landed10g := landed * 10

	karat := make(map[listing.Purity]float64, len(listing.Purities))
	for _, p := range listing.Purities {
		karat[p] = round2(landed * p.Factor())
	}

	return Snapshot{
		Timestamp:     time.Now().UTC(),
		Source:        tag,
		SpotPerGram:   round2(goldPerGram),
		LandedPerGram: round2(landed),
		SilverPerGram: round2(silverPerGram),
		KaratPerGram:  karat,
		Gold: GoldQuotes{
			Spot10g:          round2(goldPerGram * 10),
			Retail999:        round2(landed10g + RetailSpread),
			RTGS999:          round2(landed10g - RTGSDiscount),
			Retail22K:        round2(landed10g*listing.Purity22K.Factor() + JewelleryPremium10g),
			Landed999PerGram: round2(landed),
			Landed22KPerGram: round2(landed * listing.Purity22K.Factor()),
		},
		Raw: raw,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
