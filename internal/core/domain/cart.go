package domain

import (
	"fmt"
	"sort"
)

// Cart maps a product ID to the requested quantity. It lives in the session
// and is rewritten on every cart-affecting request.
type Cart map[int64]int

// EntryState is the outcome of validating one cart entry against stock.
// An entry starts as EntryRequested and moves to exactly one terminal state.
type EntryState string

const (
	EntryRequested EntryState = "requested"
	EntryValidated EntryState = "validated"
	EntryClamped   EntryState = "clamped"
	EntryDropped   EntryState = "dropped"
)

type DropReason string

const (
	DropNone            DropReason = ""
	DropProductMissing  DropReason = "product_missing"
	DropOutOfStock      DropReason = "out_of_stock"
	DropInvalidQuantity DropReason = "invalid_quantity"
	DropRemoved         DropReason = "removed"
)

type EntryOutcome struct {
	ProductID   int64
	ProductName string
	Requested   int
	Quantity    int
	State       EntryState
	Reason      DropReason
}

// Adjusted reports whether stock or catalog state changed the requested
// quantity. Removal on request is not an adjustment.
func (o EntryOutcome) Adjusted() bool {
	return o.State == EntryClamped || (o.State == EntryDropped && o.Reason != DropRemoved)
}

// Warning is the user-facing text for an adjusted entry, empty otherwise.
func (o EntryOutcome) Warning() string {
	name := o.ProductName
	if name == "" {
		name = fmt.Sprintf("product #%d", o.ProductID)
	}

	switch o.State {
	case EntryClamped:
		return fmt.Sprintf("Only %d of %s available; quantity adjusted from %d.", o.Quantity, name, o.Requested)
	case EntryDropped:
		switch o.Reason {
		case DropRemoved:
			return ""
		case DropProductMissing:
			return fmt.Sprintf("%s is no longer available and was removed from your cart.", name)
		case DropOutOfStock:
			return fmt.Sprintf("%s is out of stock and was removed from your cart.", name)
		default:
			return fmt.Sprintf("%s had an invalid quantity and was removed from your cart.", name)
		}
	}
	return ""
}

// Assess validates a requested quantity against a product. A nil product
// means the catalog no longer has it.
func Assess(productID int64, requested int, p *Product) EntryOutcome {
	out := EntryOutcome{ProductID: productID, Requested: requested, State: EntryRequested}
	if p != nil {
		out.ProductName = p.Name
	}

	switch {
	case p == nil:
		out.State, out.Reason = EntryDropped, DropProductMissing
	case requested <= 0:
		out.State, out.Reason = EntryDropped, DropInvalidQuantity
	case p.Stock <= 0:
		out.State, out.Reason = EntryDropped, DropOutOfStock
	case requested > p.Stock:
		out.State, out.Quantity = EntryClamped, p.Stock
	default:
		out.State, out.Quantity = EntryValidated, requested
	}
	return out
}

// ReconcileResult is returned by Cart.Reconcile. Changed tells the caller
// whether the session copy of the cart has to be rewritten.
type ReconcileResult struct {
	Outcomes []EntryOutcome
	Changed  bool
}

func (r ReconcileResult) Warnings() []string {
	var out []string
	for _, o := range r.Outcomes {
		if w := o.Warning(); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Surviving returns the outcomes that still contribute a line to the cart.
func (r ReconcileResult) Surviving() []EntryOutcome {
	out := make([]EntryOutcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.State == EntryValidated || o.State == EntryClamped {
			out = append(out, o)
		}
	}
	return out
}

// Reconcile applies current stock to every entry in place. products holds
// the catalog rows that still exist; IDs absent from it are dropped.
func (c Cart) Reconcile(products map[int64]Product) ReconcileResult {
	var res ReconcileResult
	for _, id := range c.ProductIDs() {
		var p *Product
		if found, ok := products[id]; ok {
			p = &found
		}

		o := Assess(id, c[id], p)
		res.Outcomes = append(res.Outcomes, o)

		switch o.State {
		case EntryDropped:
			delete(c, id)
			res.Changed = true
		case EntryClamped:
			c[id] = o.Quantity
			res.Changed = true
		}
	}
	return res
}

// ProductIDs returns the cart keys in ascending order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count is the total number of units across entries.
func (c Cart) Count() int {
	n := 0
	for _, q := range c {
		n += q
	}
	return n
}

func (c Cart) Clear() {
	clear(c)
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, q := range c {
		out[id] = q
	}
	return out
}
