package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

// Purity patterns are tried in order; the first match wins. Fineness codes
// (999/916/750/585) count as purity markers, not weights.
var purityPatterns = []struct {
	re     *regexp.Regexp
	purity listing.Purity
}{
	{regexp.MustCompile(`24\s*kt|24\s*karat|999|24k`), listing.Purity24K},
	{regexp.MustCompile(`22\s*kt|22\s*karat|916|22k`), listing.Purity22K},
	{regexp.MustCompile(`18\s*kt|18\s*karat|750|18k`), listing.Purity18K},
	{regexp.MustCompile(`14\s*kt|14\s*karat|585|14k`), listing.Purity14K},
}

var (
	parenRe   = regexp.MustCompile(`(\d+\.?\d*)\s*gm?\s*\(([^)]+)\)`)
	innerGmRe = regexp.MustCompile(`(\d+\.?\d*)\s*gm?`)
	plusRe    = regexp.MustCompile(`\s*\+\s*`)
	hyphenRe  = regexp.MustCompile(`-\s*(\d+\.?\d*)\s*gm?`)

	gramUnitRes = []*regexp.Regexp{
		regexp.MustCompile(`(\d+\.?\d*)\s*gm\b`),
		regexp.MustCompile(`(\d+\.?\d*)\s*gram\b`),
		regexp.MustCompile(`(\d+\.?\d*)\s*g\b`),
		regexp.MustCompile(`(\d+\.?\d*)\s*grams\b`),
		regexp.MustCompile(`(\d+\.?\d*)\s*gr\b`),
	}
)

// Numbers that are purity codes, never weights.
var purityCodes = map[float64]bool{24: true, 22: true, 18: true, 14: true, 999: true, 916: true, 750: true, 585: true}

const (
	minWeight = 0.001
	maxWeight = 1000
)

// Parse extracts purity and weight in grams from a free-text product title.
// It never fails: an unrecognized title yields (PurityUnknown, 0, false) and
// the listing must then be excluded from pricing.
func Parse(title string) (listing.Purity, float64, bool) {
	t := strings.ToLower(title)

	purity := listing.PurityUnknown
	for _, p := range purityPatterns {
		if p.re.MatchString(t) {
			purity = p.purity
			break
		}
	}

	for _, match := range []func(string) (float64, bool){
		parentheticalSum,
		plusJoined,
		hyphenPrefixed,
		generalScan,
	} {
		if w, ok := match(t); ok {
			return purity, w, true
		}
	}
	return purity, 0, false
}

// parentheticalSum handles titles like "4.5 Gm (0.5 Gm + 2 Gm + 2 Gm)": when
// the inner weights sum to the outer weight, the outer weight is the total.
func parentheticalSum(t string) (float64, bool) {
	m := parenRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	outer, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	inner := innerGmRe.FindAllStringSubmatch(m[2], -1)
	if len(inner) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, im := range inner {
		w, err := strconv.ParseFloat(im[1], 64)
		if err != nil {
			return 0, false
		}
		sum += w
	}
	if math.Abs(outer-sum) < 0.01 {
		return outer, true
	}
	return 0, false
}

// plusJoined sums one weight per "+"-joined segment, e.g. "2g + 4g chain set".
func plusJoined(t string) (float64, bool) {
	if !strings.Contains(t, "+") {
		return 0, false
	}
	total := 0.0
	found := false
	for _, part := range plusRe.Split(t, -1) {
		m := innerGmRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		w, err := strconv.ParseFloat(m[1], 64)
		if err != nil || w < minWeight || w > maxWeight {
			continue
		}
		total += w
		found = true
	}
	return total, found
}

// hyphenPrefixed takes a weight immediately following a hyphen, e.g. "Coin - 5g".
func hyphenPrefixed(t string) (float64, bool) {
	m := hyphenRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	w, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return w, true
}

// generalScan collects every number adjacent to a gram unit, drops purity
// codes and out-of-range values, then returns the single repeated value or
// the sum of distinct values.
func generalScan(t string) (float64, bool) {
	var weights []float64
	for _, re := range gramUnitRes {
		for _, m := range re.FindAllStringSubmatch(t, -1) {
			w, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if purityCodes[w] || w < minWeight || w > maxWeight {
				continue
			}
			weights = append(weights, w)
		}
	}
	if len(weights) == 0 {
		return 0, false
	}
	allSame := true
	for _, w := range weights[1:] {
		if w != weights[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return weights[0], true
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum, true
}

var coinKeywords = []string{"coin", "sovereign", "bar", "biscuit", "ingot", "bullion", "investment"}

var jewelleryKeywords = []string{
	"chain", "pendant", "ring", "bangle", "bracelet", "earring",
	"necklace", "mangalsutra", "jewellery", "jewelry", "ornament",
}

// Classify labels a listing as coin/bar or jewellery from keyword counts over
// the concatenated title and description. Ties default to jewellery.
func Classify(title, description string) listing.ProductType {
	text := strings.ToLower(title + " " + description)

	coinCount := 0
	for _, kw := range coinKeywords {
		if strings.Contains(text, kw) {
			coinCount++
		}
	}
	jewelleryCount := 0
	for _, kw := range jewelleryKeywords {
		if strings.Contains(text, kw) {
			jewelleryCount++
		}
	}

	if coinCount > jewelleryCount {
		return listing.TypeCoin
	}
	return listing.TypeJewellery
}
