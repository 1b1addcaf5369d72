package pricing

import (
	"context"
	"math"
	"time"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
	"github.com/yashypsoft/gold-deal-finder/internal/spot"
)

// Policy is the charge model applied on top of metal value. Every term is a
// deployment knob; the shipped defaults reproduce the production variant that
// prices against pure gold value.
type Policy struct {
	// MakingCharges is keyed "coin_24K", "jewellery_22K", etc. Missing keys
	// mean zero.
	MakingCharges map[string]float64

	GSTPercent          float64
	JewelleryPremium10g float64

	// DiscountFloor bounds pathological negative discounts.
	DiscountFloor float64
}

func DefaultPolicy() Policy {
	return Policy{
		MakingCharges: map[string]float64{
			"coin_24K":      0,
			"coin_22K":      0,
			"jewellery_24K": 0,
			"jewellery_22K": 0,
			"jewellery_18K": 0,
			"jewellery_14K": 0,
		},
		GSTPercent:          0,
		JewelleryPremium10g: spot.JewelleryPremium10g,
		DiscountFloor:       -5,
	}
}

// SnapshotGetter is the slice of the spot cache the calculator needs.
type SnapshotGetter interface {
	Get(ctx context.Context, force bool) spot.Snapshot
}

// Result is the fair-price breakdown for one listing. It is recomputed per
// evaluation and never persisted.
type Result struct {
	SourceTag     spot.SourceTag
	SpotPerGram   float64
	LandedPerGram float64

	GoldValue            float64
	MakingCharges        float64
	MakingChargesPercent float64
	GST                  float64
	GSTPercent           float64
	TotalExpected        float64
	PricePerGram         float64

	PurityFactor float64
	SnapshotTime time.Time
}

// Calculator derives expected fair prices from the shared spot cache.
type Calculator struct {
	cache  SnapshotGetter
	policy Policy
}

func NewCalculator(cache SnapshotGetter, policy Policy) *Calculator {
	if policy.MakingCharges == nil {
		policy.MakingCharges = map[string]float64{}
	}
	return &Calculator{cache: cache, policy: policy}
}

// ExpectedPrice computes the fair price for weight grams of the given purity
// and product type. Monetary outputs are rounded to two decimals at return;
// intermediates keep full precision.
func (c *Calculator) ExpectedPrice(ctx context.Context, weightGrams float64, purity listing.Purity, ptype listing.ProductType) Result {
	snap := c.cache.Get(ctx, false)

	factor := purity.Factor()
	if factor == 0 {
		factor = listing.Purity22K.Factor()
	}

	var goldValue float64
	if perGram, ok := snap.KaratPerGram[purity]; ok && perGram > 0 {
		goldValue = perGram * weightGrams
	} else {
		goldValue = snap.LandedPerGram * factor * weightGrams
	}

	chargesPct := c.policy.MakingCharges[string(ptype)+"_"+string(purity)]
	making := goldValue * chargesPct
	gst := (goldValue + making) * c.policy.GSTPercent / 100
	total := goldValue + making + gst

	pricePerGram := 0.0
	if weightGrams > 0 {
		pricePerGram = total / weightGrams
	}

	// Jewellery at sub-24K purity carries a flat retail premium per 10g.
	if ptype == listing.TypeJewellery && purity != listing.Purity24K && purity.Known() {
		premium := c.policy.JewelleryPremium10g * (weightGrams / 10) * factor
		total += premium
		making += premium
		if weightGrams > 0 {
			pricePerGram = total / weightGrams
		}
	}

	return Result{
		SourceTag:            snap.Source,
		SpotPerGram:          snap.SpotPerGram,
		LandedPerGram:        snap.LandedPerGram,
		GoldValue:            round2(goldValue),
		MakingCharges:        round2(making),
		MakingChargesPercent: round2(chargesPct * 100),
		GST:                  round2(gst),
		GSTPercent:           c.policy.GSTPercent,
		TotalExpected:        round2(total),
		PricePerGram:         round2(pricePerGram),
		PurityFactor:         factor,
		SnapshotTime:         snap.Timestamp,
	}
}

// DiscountPercent is the relative gap between expected and selling price,
// clamped below at the policy floor. A non-positive expected price yields 0.
func (c *Calculator) DiscountPercent(sellingPrice, expectedPrice float64) float64 {
	if expectedPrice <= 0 {
		return 0
	}
	discount := ((expectedPrice - sellingPrice) / expectedPrice) * 100
	return round2(math.Max(discount, c.policy.DiscountFloor))
}

// Snapshot exposes the current spot snapshot for summary rendering.
func (c *Calculator) Snapshot(ctx context.Context) spot.Snapshot {
	return c.cache.Get(ctx, false)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
