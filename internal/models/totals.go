package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Default quantities when an item leaves Quantity unset.
const (
	DefaultCompulsoryQuantity = 1
	DefaultAddOnQuantity      = 0
)

func sumItems(items []QuoteItem, defQty int) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.EffectiveQuantity(defQty))))
		sum = sum.Add(line)
	}
	return sum
}

func preDiscount(compulsory, addOns []QuoteItem) decimal.Decimal {
	return sumItems(compulsory, DefaultCompulsoryQuantity).Add(sumItems(addOns, DefaultAddOnQuantity))
}

// CalculatePreDiscountTotal sums price x quantity over both collections. Discounts are ignored.
func CalculatePreDiscountTotal(compulsory, addOns []QuoteItem) float64 {
	return preDiscount(compulsory, addOns).Round(2).InexactFloat64()
}

// CalculateQuoteTotal applies the percentage discount, then the flat discount, rounds to cents
// and clamps at zero. The order of the two discounts matters and must not change.
// Negative prices or quantities are not rejected here.
func CalculateQuoteTotal(compulsory, addOns []QuoteItem, discountPercentage, discountAmount float64) float64 {
	total := preDiscount(compulsory, addOns)
	if discountPercentage > 0 {
		factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPercentage).Div(hundred))
		total = total.Mul(factor)
	}
	if discountAmount > 0 {
		total = total.Sub(decimal.NewFromFloat(discountAmount))
	}
	total = total.Round(2)
	if total.IsNegative() {
		return 0
	}
	return total.InexactFloat64()
}

// CalculateDeposit returns depositPercentage of total, rounded to cents.
func CalculateDeposit(total, depositPercentage float64) float64 {
	if depositPercentage <= 0 || total <= 0 {
		return 0
	}
	return decimal.NewFromFloat(total).Mul(decimal.NewFromFloat(depositPercentage)).Div(hundred).Round(2).InexactFloat64()
}

// LineTotal is price x quantity for rendering.
func LineTotal(it QuoteItem, defQty int) float64 {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.EffectiveQuantity(defQty)))).Round(2).InexactFloat64()
}
