package utils

import "github.com/shopspring/decimal"

// Money accumulates currency amounts without float drift. The zero value is 0.
type Money struct {
	d decimal.Decimal
}

func (m *Money) Add(v float64) {
	m.d = m.d.Add(decimal.NewFromFloat(v))
}

func (m Money) Float64() float64 {
	return m.d.InexactFloat64()
}

// SumMoney adds amounts exactly and returns the float result.
func SumMoney(values ...float64) float64 {
	var m Money
	for _, v := range values {
		m.Add(v)
	}
	return m.Float64()
}

// RoundMoney rounds to cents for display.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
