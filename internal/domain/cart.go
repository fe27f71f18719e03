package domain

import (
	"math"
	"time"
)

// CartLine is a product in the cart with its quantity. Lines are merged
// by the product's numeric ID, so the cart never holds two lines for the
// same product.
type CartLine struct {
	Product      Product   `json:"product"`
	Quantity     int       `json:"quantity"`
	AddedAt      time.Time `json:"added_at,omitempty"`
	Instructions string    `json:"instructions,omitempty"`
}

// CartState is the full ordered cart contents published to subscribers
// after every mutation. Insertion order is preserved; merges keep the
// original position.
type CartState []CartLine

// Total returns the sum of price*quantity over all lines, rounded to two
// decimals.
func (s CartState) Total() float64 {
	var total float64
	for _, line := range s {
		total += line.Product.Price * float64(line.Quantity)
	}
	return math.Round(total*100) / 100
}

// ItemCount returns the sum of quantities over all lines.
func (s CartState) ItemCount() int {
	var count int
	for _, line := range s {
		count += line.Quantity
	}
	return count
}
