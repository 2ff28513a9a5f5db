package stock

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeTotal: fiyat * adet, yüzde indirim düşülür, yüzde vergi eklenir.
func ComputeTotal(price decimal.Decimal, quantity int, discountPct, taxPct decimal.Decimal) decimal.Decimal {
	gross := price.Mul(decimal.NewFromInt(int64(quantity)))
	discount := gross.Mul(discountPct).Div(hundred)
	tax := gross.Mul(taxPct).Div(hundred)
	return gross.Sub(discount).Add(tax).Round(2)
}
