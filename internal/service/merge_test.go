package service

import (
	"testing"

	"github.com/fume-lounge/api/internal/database"
	"github.com/shopspring/decimal"
)

func li(sku, flavor string, qty int32, price string) database.LineItem {
	return database.LineItem{
		SKU:    sku,
		Flavor: flavor,
		Qty:    qty,
		Price:  decimal.RequireFromString(price),
	}
}

func TestMergeItems_EmptyExisting(t *testing.T) {
	merged := MergeItems(nil, []database.LineItem{li("beer", "", 2, "8")})

	if len(merged) != 1 {
		t.Fatalf("len: got %d, want 1", len(merged))
	}
	if merged[0].Qty != 2 {
		t.Errorf("qty: got %d, want 2", merged[0].Qty)
	}
}

func TestMergeItems_MatchingKeyAddsQty(t *testing.T) {
	existing := []database.LineItem{li("beer", "", 2, "8")}
	merged := MergeItems(existing, []database.LineItem{li("beer", "", 1, "8")})

	if len(merged) != 1 {
		t.Fatalf("len: got %d, want 1", len(merged))
	}
	if merged[0].Qty != 3 {
		t.Errorf("qty: got %d, want 3", merged[0].Qty)
	}
}

func TestMergeItems_FlavorDistinguishesKeys(t *testing.T) {
	existing := []database.LineItem{li("shisha", "mint", 1, "25")}
	merged := MergeItems(existing, []database.LineItem{li("shisha", "grape", 1, "25")})

	if len(merged) != 2 {
		t.Fatalf("len: got %d, want 2", len(merged))
	}
	if merged[0].Flavor != "mint" || merged[1].Flavor != "grape" {
		t.Errorf("flavors: got %q, %q", merged[0].Flavor, merged[1].Flavor)
	}
}

func TestMergeItems_DuplicateKeysInIncoming(t *testing.T) {
	// Two entries for the same key inside one submission merge with each
	// other, not just against existing items.
	merged := MergeItems(nil, []database.LineItem{
		li("beer", "", 1, "8"),
		li("beer", "", 1, "8"),
	})

	if len(merged) != 1 {
		t.Fatalf("len: got %d, want 1", len(merged))
	}
	if merged[0].Qty != 2 {
		t.Errorf("qty: got %d, want 2", merged[0].Qty)
	}
}

func TestMergeItems_FirstPriceWins(t *testing.T) {
	existing := []database.LineItem{li("beer", "", 1, "8")}
	merged := MergeItems(existing, []database.LineItem{li("beer", "", 1, "9")})

	if len(merged) != 1 {
		t.Fatalf("len: got %d, want 1", len(merged))
	}
	if !merged[0].Price.Equal(decimal.RequireFromString("8")) {
		t.Errorf("price: got %s, want 8 (existing price retained)", merged[0].Price)
	}
	if merged[0].Qty != 2 {
		t.Errorf("qty: got %d, want 2", merged[0].Qty)
	}
}

func TestMergeItems_PreservesFirstAppearanceOrder(t *testing.T) {
	existing := []database.LineItem{
		li("wine", "", 1, "10"),
		li("beer", "", 2, "8"),
	}
	merged := MergeItems(existing, []database.LineItem{
		li("beer", "", 1, "8"),
		li("gin", "", 1, "12"),
	})

	want := []string{"wine", "beer", "gin"}
	if len(merged) != len(want) {
		t.Fatalf("len: got %d, want %d", len(merged), len(want))
	}
	for i, sku := range want {
		if merged[i].SKU != sku {
			t.Errorf("merged[%d].SKU: got %q, want %q", i, merged[i].SKU, sku)
		}
	}
}

func TestMergeItems_DoesNotMutateExisting(t *testing.T) {
	existing := []database.LineItem{li("beer", "", 2, "8")}
	_ = MergeItems(existing, []database.LineItem{li("beer", "", 1, "8")})

	if existing[0].Qty != 2 {
		t.Errorf("existing mutated: qty got %d, want 2", existing[0].Qty)
	}
}

func TestItemsTotal(t *testing.T) {
	items := []database.LineItem{
		li("beer", "", 3, "8"),
		li("wine", "", 1, "10"),
	}

	total := ItemsTotal(items)
	if !total.Equal(decimal.RequireFromString("34")) {
		t.Errorf("total: got %s, want 34", total)
	}
}

func TestItemsTotal_Empty(t *testing.T) {
	if total := ItemsTotal(nil); !total.IsZero() {
		t.Errorf("total: got %s, want 0", total)
	}
}
