package service

import "math"

// TaxRate 訂單稅率 5%
const TaxRate = 0.05

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CalculateTotal 回傳小計、稅金與總額，空清單全部為 0
func CalculateTotal(prices []float64) (subtotal, tax, total float64) {
	for _, p := range prices {
		subtotal += p
	}
	tax = round2(subtotal * TaxRate)
	total = round2(subtotal + tax)
	return subtotal, tax, total
}
