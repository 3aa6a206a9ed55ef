// Package reconcile merges the structured and extracted item channels of a
// facility.
package reconcile

import (
	"strings"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Result is the outcome of a merge.
type Result struct {
	Items      []pricing.LineItem
	Duplicates int
	Noise      int
}

// Merge keeps every structured item and appends each extracted item that is
// not administrative noise and not a duplicate of an item already kept.
// Two items are duplicates when their prices are equal and either compact
// name contains the other.
func Merge(structured, extracted []pricing.LineItem) Result {
	res := Result{Items: make([]pricing.LineItem, 0, len(structured)+len(extracted))}
	keys := make([]string, 0, cap(res.Items))

	for _, item := range structured {
		res.Items = append(res.Items, item)
		keys = append(keys, pricing.CompareKey(item.Name))
	}

	for _, item := range extracted {
		if pricing.IsAdministrativeNoise(item.Name) || pricing.IsAdministrativeNoise(item.Detail) {
			res.Noise++
			continue
		}
		key := pricing.CompareKey(item.Name)
		if isDuplicate(res.Items, keys, item.Price, key) {
			res.Duplicates++
			continue
		}
		res.Items = append(res.Items, item)
		keys = append(keys, key)
	}

	return res
}

func isDuplicate(items []pricing.LineItem, keys []string, price int64, key string) bool {
	if key == "" {
		return false
	}
	for i, existing := range items {
		if existing.Price != price || keys[i] == "" {
			continue
		}
		if strings.Contains(keys[i], key) || strings.Contains(key, keys[i]) {
			return true
		}
	}
	return false
}
