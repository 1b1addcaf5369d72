package parse

import (
	"math"
	"testing"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		title  string
		purity listing.Purity
		weight float64
		ok     bool
	}{
		{
			name:   "plain gram unit",
			title:  "22K Gold Coin 10 Gm",
			purity: listing.Purity22K,
			weight: 10,
			ok:     true,
		},
		{
			name:   "kt with space",
			title:  "Pure 24 KT Gold Bar 5g",
			purity: listing.Purity24K,
			weight: 5,
			ok:     true,
		},
		{
			name:   "fineness code as purity",
			title:  "916 Gold Bangle 8 gram",
			purity: listing.Purity22K,
			weight: 8,
			ok:     true,
		},
		{
			name:   "parenthetical breakdown uses outer total",
			title:  "Gold Coin Set 4.5 Gm (0.5 Gm + 2 Gm + 2 Gm) 24k",
			purity: listing.Purity24K,
			weight: 4.5,
			ok:     true,
		},
		{
			name:   "plus joined segments are summed",
			title:  "22kt gold chain 2g + pendant 4g",
			purity: listing.Purity22K,
			weight: 6,
			ok:     true,
		},
		{
			name:   "hyphen prefixed weight",
			title:  "Gold Coin 24k - 5g",
			purity: listing.Purity24K,
			weight: 5,
			ok:     true,
		},
		{
			name:   "repeated equal weights collapse to one",
			title:  "22kt gold coin 5 g pack, each 5 g",
			purity: listing.Purity22K,
			weight: 5,
			ok:     true,
		},
		{
			name:   "distinct weights are summed",
			title:  "22kt bridal set 2g and 3g",
			purity: listing.Purity22K,
			weight: 5,
			ok:     true,
		},
		{
			name:   "fineness code never counts as weight",
			title:  "Gold Coin 999",
			purity: listing.Purity24K,
			weight: 0,
			ok:     false,
		},
		{
			name:   "no purity no weight",
			title:  "Beautiful Pendant",
			purity: listing.PurityUnknown,
			weight: 0,
			ok:     false,
		},
		{
			name:   "weight without purity still parses",
			title:  "Gold Coin 10 gram",
			purity: listing.PurityUnknown,
			weight: 10,
			ok:     true,
		},
		{
			name:   "18 karat",
			title:  "18 Karat Diamond Ring 3.25 grams",
			purity: listing.Purity18K,
			weight: 3.25,
			ok:     true,
		},
		{
			name:   "14k",
			title:  "14k gold earring 1.5gm",
			purity: listing.Purity14K,
			weight: 1.5,
			ok:     true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			purity, weight, ok := Parse(tc.title)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if purity != tc.purity {
				t.Fatalf("purity = %q, want %q", purity, tc.purity)
			}
			if math.Abs(weight-tc.weight) > 1e-9 {
				t.Fatalf("weight = %g, want %g", weight, tc.weight)
			}
		})
	}
}

func TestParseOutOfRangeWeights(t *testing.T) {
	t.Parallel()

	if _, _, ok := Parse("gold brick 5000 g 22k"); ok {
		t.Fatal("weights above 1000g must be rejected")
	}
	if _, _, ok := Parse("gold dust 0.0001 g 22k"); ok {
		t.Fatal("weights below 0.001g must be rejected")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title, desc string
		want        listing.ProductType
	}{
		{"Gold Coin 24K 10g", "", listing.TypeCoin},
		{"Gold Bar 999", "certified bullion investment", listing.TypeCoin},
		{"22K Gold Chain", "", listing.TypeJewellery},
		{"Gold Mangalsutra with Pendant", "", listing.TypeJewellery},
		// no keywords at all defaults to jewellery
		{"Gold 10g", "", listing.TypeJewellery},
		// a tie also defaults to jewellery
		{"Gold coin pendant 5g", "", listing.TypeJewellery},
	}

	for _, tc := range cases {
		if got := Classify(tc.title, tc.desc); got != tc.want {
			t.Errorf("Classify(%q, %q) = %q, want %q", tc.title, tc.desc, got, tc.want)
		}
	}
}
