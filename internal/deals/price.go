package deals

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParsePrice reads a marketplace price such as "1.299,99 €", "12,99€" or
// "$1,299.99". When both separators appear the last one is the decimal
// separator; a lone comma is always decimal.
func ParsePrice(s string) (decimal.Decimal, bool) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' {
			return r
		}
		return -1
	}, s)
	if clean == "" {
		return decimal.Zero, false
	}

	comma, dot := strings.LastIndex(clean, ","), strings.LastIndex(clean, ".")
	switch {
	case comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case comma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DiscountPct returns the percentage saved going from previous to price.
// It is 0 whenever either side is missing or unparseable.
func DiscountPct(price, previous string) float64 {
	if price == "" || previous == "" {
		return 0
	}
	now, ok := ParsePrice(price)
	if !ok {
		return 0
	}
	before, ok := ParsePrice(previous)
	if !ok || !before.IsPositive() {
		return 0
	}

	pct, _ := before.Sub(now).Div(before).Mul(hundred).Float64()
	return pct
}

// NewProduct builds a product and derives HasDeal and DiscountPct from the
// two prices.
func NewProduct(id, title, price, previous string) Product {
	return Product{
		ID:            id,
		Title:         title,
		Price:         price,
		PreviousPrice: previous,
		DiscountPct:   DiscountPct(price, previous),
		HasDeal:       previous != "",
	}
}
