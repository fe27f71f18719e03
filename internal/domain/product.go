package domain

import "encoding/json"

// Category labels form a closed set; the normalizer guarantees every
// product carries exactly one of them.
const (
	CategoryBurgers  = "burgers"
	CategoryChicken  = "chicken"
	CategorySides    = "sides"
	CategoryDrinks   = "drinks"
	CategoryDesserts = "desserts"
	CategoryOther    = "other"
)

// Categories lists the closed category set in menu display order.
var Categories = []string{
	CategoryBurgers,
	CategoryChicken,
	CategorySides,
	CategoryDrinks,
	CategoryDesserts,
	CategoryOther,
}

// Product is the normalized menu item produced from a raw POS payload.
// Instances are never mutated after construction; a fresh fetch yields
// fresh instances.
type Product struct {
	ID              int             `json:"id"`
	UID             string          `json:"uid"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           float64         `json:"price"`
	PriceEstimated  bool            `json:"price_estimated"`
	Category        string          `json:"category"`
	ImageURL        string          `json:"image_url"`
	ImageFallback   bool            `json:"image_fallback"`
	IsPopular       bool            `json:"is_popular"`
	Allergens       []string        `json:"allergens"`
	PrepTimeMinutes int             `json:"prep_time_minutes"`
	Available       bool            `json:"available"`
	Raw             json.RawMessage `json:"-"`
}

// Category is a normalized POS product category.
type Category struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryWithProducts pairs a category with the products matched to it.
// Categories with no matched products are dropped before this is built.
type CategoryWithProducts struct {
	Category Category  `json:"category"`
	Products []Product `json:"products"`
}
