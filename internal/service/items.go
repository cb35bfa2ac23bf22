package service

import (
	"github.com/fume-lounge/api/internal/database"
	"github.com/shopspring/decimal"
)

// itemKey identifies a line item within an order. Items without a
// flavor collapse to the same key as an empty flavor tag.
func itemKey(it database.LineItem) string {
	return it.SKU + "|" + it.Flavor
}

// MergeItems folds incoming line items into an existing list, matching
// on (sku, flavor). A matched key adds quantity to the existing entry
// and keeps its price and name; unmatched entries are appended verbatim
// and registered, so duplicate keys inside incoming also accumulate.
// First-appearance order is preserved.
//
// When the same key reappears with a different price, the price already
// on the list wins.
func MergeItems(existing, incoming []database.LineItem) []database.LineItem {
	merged := make([]database.LineItem, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, it := range merged {
		index[itemKey(it)] = i
	}

	for _, it := range incoming {
		key := itemKey(it)
		if i, ok := index[key]; ok {
			merged[i].Qty += it.Qty
			continue
		}
		merged = append(merged, it)
		index[key] = len(merged) - 1
	}

	return merged
}

// ItemsTotal sums price*qty over the line items.
func ItemsTotal(items []database.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt32(it.Qty)))
	}
	return total
}
