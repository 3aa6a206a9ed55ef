// Package representative picks one summary price per product family.
package representative

import (
	"math"
	"strings"

	"github.com/seunghun2/daedaesonson/internal/classify"
	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Default burial-plot area targets, in 평.
const (
	DefaultPublicTarget  = 1.5
	DefaultPrivateTarget = 3.0
)

const sizeEpsilon = 1e-9

// Config holds selector configuration.
type Config struct {
	PublicTarget  float64
	PrivateTarget float64
}

// Selector chooses representative items.
type Selector struct {
	publicTarget  float64
	privateTarget float64
}

// excludedKeywords mark fee, accessory and contract-clause items that never
// represent a product.
var excludedKeywords = []string{
	"관리비", "석물", "작업비", "설치비", "개장", "갱신", "연장",
	"할인", "환불", "반환", "위약",
}

// NewSelector creates a new representative selector.
func NewSelector(cfg Config) *Selector {
	if cfg.PublicTarget <= 0 {
		cfg.PublicTarget = DefaultPublicTarget
	}
	if cfg.PrivateTarget <= 0 {
		cfg.PrivateTarget = DefaultPrivateTarget
	}
	return &Selector{publicTarget: cfg.PublicTarget, privateTarget: cfg.PrivateTarget}
}

// Target returns the burial-plot area target for an institution type.
// Unknown types are treated as private.
func (s *Selector) Target(inst pricing.InstitutionType) float64 {
	if inst == pricing.InstitutionPublic {
		return s.publicTarget
	}
	return s.privateTarget
}

// Select returns one item per super-group. Super-groups without an eligible
// candidate are absent from the map.
func (s *Selector) Select(items []pricing.LineItem, inst pricing.InstitutionType) map[pricing.SuperGroup]pricing.LineItem {
	candidates := make(map[pricing.SuperGroup][]pricing.LineItem)
	for _, item := range items {
		group, ok := pricing.SuperGroupOf(item.Category)
		if !ok || Excluded(item) {
			continue
		}
		candidates[group] = append(candidates[group], item)
	}

	out := make(map[pricing.SuperGroup]pricing.LineItem)
	for group, list := range candidates {
		var (
			pick pricing.LineItem
			ok   bool
		)
		if group == pricing.SuperGroupBurial {
			pick, ok = selectByArea(list, s.Target(inst))
		} else {
			pick, ok = cheapest(list)
		}
		if ok {
			out[group] = pick
		}
	}
	return out
}

// Excluded reports whether item belongs to a sub-type that never
// represents its family.
func Excluded(item pricing.LineItem) bool {
	text := pricing.CompareKey(item.Name + item.Group)
	for _, kw := range excludedKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, kw := range classify.StoneworkLexicon {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// selectByArea prefers the exact target, then the cheapest larger plot,
// then the closest smaller plot, then the cheapest item when no sizes exist.
func selectByArea(items []pricing.LineItem, target float64) (pricing.LineItem, bool) {
	var exact, larger, smaller []pricing.LineItem
	for _, item := range items {
		if !item.HasSize() {
			continue
		}
		size := *item.SizeValue
		switch {
		case math.Abs(size-target) < sizeEpsilon:
			exact = append(exact, item)
		case size > target:
			larger = append(larger, item)
		default:
			smaller = append(smaller, item)
		}
	}

	if pick, ok := cheapest(exact); ok {
		return pick, true
	}
	if pick, ok := cheapest(larger); ok {
		return pick, true
	}
	if len(smaller) > 0 {
		best := smaller[0]
		for _, item := range smaller[1:] {
			d, bd := target-*item.SizeValue, target-*best.SizeValue
			if d < bd-sizeEpsilon || (math.Abs(d-bd) < sizeEpsilon && item.Price < best.Price) {
				best = item
			}
		}
		return best, true
	}
	return cheapest(items)
}

// cheapest returns the lowest priced item; ties keep the earlier item.
func cheapest(items []pricing.LineItem) (pricing.LineItem, bool) {
	if len(items) == 0 {
		return pricing.LineItem{}, false
	}
	best := items[0]
	for _, item := range items[1:] {
		if item.Price < best.Price {
			best = item
		}
	}
	return best, true
}
