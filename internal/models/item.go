package models

// QuoteItem is a single priced line. It is always owned by exactly one QuoteVersion (or draft form)
// and is never persisted on its own.
type QuoteItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Quantity is nil when the operator left it unset; see EffectiveQuantity.
	Quantity *int    `json:"quantity,omitempty"`
	Price    float64 `json:"price"`
	Schedule string  `json:"schedule,omitempty"`

	// Rendering only, never used by totals.
	ShowScheduleDates bool `json:"showScheduleDates"`
	ShowQuantity      bool `json:"showQuantity"`
	ShowRate          bool `json:"showRate"`
}

// EffectiveQuantity returns the quantity or def when unset.
func (i QuoteItem) EffectiveQuantity(def int) int {
	if i.Quantity == nil {
		return def
	}
	return *i.Quantity
}

// GetUnitPrice is used by templates.
func (i QuoteItem) GetUnitPrice() float64 { return i.Price }

// Qty is a helper to build a quantity pointer.
func Qty(n int) *int { return &n }

// BankDetails printed on quotes and invoices for deposit payment.
type BankDetails struct {
	AccountName   string `json:"accountName,omitempty"`
	BSB           string `json:"bsb,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
}

// cloneItems deep-copies a slice of items, including quantity pointers.
func cloneItems(items []QuoteItem) []QuoteItem {
	if items == nil {
		return nil
	}
	out := make([]QuoteItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Quantity != nil {
			out[i].Quantity = Qty(*it.Quantity)
		}
	}
	return out
}
