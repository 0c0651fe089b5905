package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func product(id int64, stock int) Product {
	return Product{ID: id, Name: "p", Price: decimal.RequireFromString("10.00"), Stock: stock}
}

func TestAssess(t *testing.T) {
	p := product(1, 5)

	tests := []struct {
		name      string
		requested int
		product   *Product
		state     EntryState
		quantity  int
		reason    DropReason
	}{
		{"within stock", 3, &p, EntryValidated, 3, DropNone},
		{"exactly stock", 5, &p, EntryValidated, 5, DropNone},
		{"over stock", 9, &p, EntryClamped, 5, DropNone},
		{"missing product", 2, nil, EntryDropped, 0, DropProductMissing},
		{"zero quantity", 0, &p, EntryDropped, 0, DropInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(1, tt.requested, tt.product)
			if got.State != tt.state || got.Quantity != tt.quantity || got.Reason != tt.reason {
				t.Fatalf("got %+v", got)
			}
		})
	}

	t.Run("zero stock", func(t *testing.T) {
		empty := product(2, 0)
		got := Assess(2, 1, &empty)
		if got.State != EntryDropped || got.Reason != DropOutOfStock {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestReconcile(t *testing.T) {
	cart := Cart{1: 3, 2: 10, 3: 1, 4: 2}
	products := map[int64]Product{
		1: product(1, 5),
		2: product(2, 2),
		4: product(4, 0),
	}

	res := cart.Reconcile(products)

	if !res.Changed {
		t.Fatal("expected cart to be reported as changed")
	}
	if len(cart) != 2 {
		t.Fatalf("expected 2 surviving entries, got %v", cart)
	}
	if cart[1] != 3 {
		t.Errorf("expected product 1 qty 3, got %d", cart[1])
	}
	if cart[2] != 2 {
		t.Errorf("expected product 2 clamped to 2, got %d", cart[2])
	}
	if _, ok := cart[3]; ok {
		t.Error("expected missing product 3 to be removed")
	}
	if _, ok := cart[4]; ok {
		t.Error("expected out-of-stock product 4 to be removed")
	}

	if len(res.Outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(res.Outcomes))
	}
	if len(res.Surviving()) != 2 {
		t.Errorf("expected 2 surviving outcomes, got %d", len(res.Surviving()))
	}
	if len(res.Warnings()) != 3 {
		t.Errorf("expected 3 warnings, got %v", res.Warnings())
	}
}

func TestReconcile_NeverExceedsStock(t *testing.T) {
	products := map[int64]Product{}
	cart := Cart{}
	for i := int64(1); i <= 20; i++ {
		products[i] = product(i, int(i%4))
		cart[i] = int(i)
	}

	cart.Reconcile(products)

	for id, q := range cart {
		if q > products[id].Stock {
			t.Fatalf("product %d: qty %d exceeds stock %d", id, q, products[id].Stock)
		}
		if q <= 0 {
			t.Fatalf("product %d: non-positive qty %d left in cart", id, q)
		}
	}
}

func TestReconcile_UnchangedCart(t *testing.T) {
	cart := Cart{1: 1}
	res := cart.Reconcile(map[int64]Product{1: product(1, 5)})
	if res.Changed {
		t.Error("expected no change")
	}
	if res.Outcomes[0].State != EntryValidated {
		t.Errorf("expected validated, got %s", res.Outcomes[0].State)
	}
}

func TestCartCountAndClear(t *testing.T) {
	cart := Cart{1: 2, 5: 3}
	if cart.Count() != 5 {
		t.Errorf("expected count 5, got %d", cart.Count())
	}

	ids := cart.ProductIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 5 {
		t.Errorf("unexpected ids %v", ids)
	}

	cart.Clear()
	if len(cart) != 0 {
		t.Errorf("expected empty cart, got %v", cart)
	}
}
