package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Total is quantity × unit price × (1 + vat/100), rounded half-up to cents.
func (it Item) Total() decimal.Decimal {
	gross := it.Quantity.Mul(it.UnitPrice).Mul(decimal.NewFromInt(1).Add(it.VATRate.Div(hundred)))
	return gross.Round(2)
}

// Total sums the rounded item totals.
func (inv Invoice) Total() decimal.Decimal {
	return SumItems(inv.Items)
}

func SumItems(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// Money formats d with exactly two decimals.
func Money(d decimal.Decimal) string { return d.StringFixed(2) }
