package normalize

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"qrmenu/internal/domain"

	"go.uber.org/zap"
)

// Normalizer converts raw POS payloads into the stable internal model.
type Normalizer struct {
	imageBaseURL string
	logger       *zap.Logger
}

func New(imageBaseURL string, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		logger:       logger,
	}
}

// Field-name tables, evaluated first-match-wins.
var (
	idKeys          = []string{"id", "productId", "product_id", "number"}
	uidKeys         = []string{"uid", "productUid", "guid", "_id"}
	nameKeys        = []string{"name", "productName", "title", "label"}
	descriptionKeys = []string{"description", "desc", "details", "shortDescription"}
	priceListKeys   = []string{"locationPrices", "productLocationPrices", "prices"}
	altPriceKeys    = []string{"price", "unitPrice", "cost", "amount", "basePrice"}
	imageUIDKeys    = []string{"imageUid", "imageUID", "image_uid", "pictureUid"}
	imageURLKeys    = []string{"image", "imageUrl", "image_url", "picture", "photo", "thumbnail"}
)

const inlineImagePrefix = "data:image"

// categoryKeywords maps each category to the name/alias fragments that
// select it. Evaluation order is fixed; the first matching category wins
// and anything unmatched falls through to "other".
var categoryOrder = []string{
	domain.CategoryBurgers,
	domain.CategoryChicken,
	domain.CategorySides,
	domain.CategoryDrinks,
	domain.CategoryDesserts,
}

var categoryKeywords = map[string][]string{
	domain.CategoryBurgers:  {"burger", "big mac", "whopper", "cheeseburger", "patty", "beef"},
	domain.CategoryChicken:  {"chicken", "wing", "nugget", "tender", "drumstick"},
	domain.CategorySides:    {"fries", "side", "onion ring", "salad", "potato", "coleslaw"},
	// "coca" rather than "cola": "chocolate" contains the substring "cola"
	// and would drag desserts into drinks.
	domain.CategoryDrinks:   {"drink", "coca", "coke", "juice", "coffee", "tea", "soda", "water", "shake", "beverage", "lemonade"},
	domain.CategoryDesserts: {"dessert", "ice cream", "cake", "sundae", "cookie", "pie", "muffin", "brownie"},
}

// syntheticPriceRange is the [min,max] range for the category-based
// fallback price used when no authoritative price can be extracted.
var syntheticPriceRange = map[string][2]float64{
	domain.CategoryBurgers:  {8.0, 15.0},
	domain.CategoryChicken:  {7.0, 14.0},
	domain.CategorySides:    {3.0, 7.0},
	domain.CategoryDrinks:   {2.0, 5.0},
	domain.CategoryDesserts: {4.0, 8.0},
	domain.CategoryOther:    {5.0, 12.0},
}

var allergenKeywords = map[string][]string{
	"dairy":  {"cheese", "milk", "cream", "butter", "yogurt", "mozzarella"},
	"gluten": {"bun", "bread", "flour", "wheat", "batter", "pasta", "tortilla"},
	"egg":    {"egg", "mayo", "mayonnaise"},
	"nuts":   {"nut", "peanut", "almond", "hazelnut", "pistachio"},
	"soy":    {"soy", "tofu", "edamame"},
}

// allergenOrder keeps the returned tag set in a stable order.
var allergenOrder = []string{"dairy", "gluten", "egg", "nuts", "soy"}

var prepTimeBase = map[string]int{
	domain.CategoryDrinks:   1,
	domain.CategoryDesserts: 3,
	domain.CategorySides:    5,
	domain.CategoryChicken:  12,
	domain.CategoryBurgers:  8,
	domain.CategoryOther:    6,
}

// Product converts one raw POS product object into the internal model.
// Every field resolves to something usable; synthesized values carry
// provenance flags instead of pretending to be authoritative.
func (n *Normalizer) Product(raw map[string]interface{}) domain.Product {
	name, _ := firstString(raw, nameKeys)
	if name == "" {
		name = "Unnamed item"
	}
	description, _ := firstString(raw, descriptionKeys)
	uid, _ := firstString(raw, uidKeys)

	id, ok := firstIntValue(raw, idKeys)
	if !ok {
		// No numeric identity anywhere; derive a stable one so cart
		// merging still works.
		id = int(hashOf(uid+name) % 1_000_000)
	}

	category := n.resolveCategory(raw, name)
	price, priceEstimated := n.resolvePrice(raw, category, name)
	imageURL, imageFallback := n.resolveImage(raw, category, id)

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		rawJSON = nil
	}

	return domain.Product{
		ID:              id,
		UID:             uid,
		Name:            name,
		Description:     description,
		Price:           price,
		PriceEstimated:  priceEstimated,
		Category:        category,
		ImageURL:        imageURL,
		ImageFallback:   imageFallback,
		IsPopular:       resolvePopularity(raw, name, id),
		Allergens:       resolveAllergens(name, description),
		PrepTimeMinutes: resolvePrepTime(category, name),
		Available:       resolveAvailability(raw),
		Raw:             rawJSON,
	}
}

// resolvePrice runs the price ladder: location price list, product-level
// unitPriceWithVat, alternate keys, then a flagged synthetic fallback.
func (n *Normalizer) resolvePrice(raw map[string]interface{}, category, name string) (float64, bool) {
	for _, listKey := range priceListKeys {
		entries, ok := raw[listKey].([]interface{})
		if !ok {
			continue
		}
		for _, entry := range entries {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if f, ok := firstFloat(m, []string{"unitPriceWithVat", "price"}); ok {
				return round2(f), false
			}
		}
	}

	if f, ok := asFloat(raw["unitPriceWithVat"]); ok && f > 0 {
		return round2(f), false
	}

	if f, ok := firstFloat(raw, altPriceKeys); ok {
		return round2(f), false
	}

	price := n.syntheticPrice(category, name)
	n.logger.Debug("No usable price in payload, synthesized fallback",
		zap.String("name", name),
		zap.String("category", category),
		zap.Float64("price", price),
	)
	return price, true
}

// syntheticPrice draws a stable pseudo-random price from the category's
// range, scaled by name-derived multipliers. Seeding from the name keeps
// the menu stable across re-fetches within a run.
func (n *Normalizer) syntheticPrice(category, name string) float64 {
	bounds, ok := syntheticPriceRange[category]
	if !ok {
		bounds = syntheticPriceRange[domain.CategoryOther]
	}

	seed := hashOf(strings.ToLower(name))
	fraction := float64(seed%1000) / 999.0
	price := bounds[0] + fraction*(bounds[1]-bounds[0])

	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, []string{"large", "big", "xl"}):
		price *= 1.3
	case containsAny(lower, []string{"small", "mini"}):
		price *= 0.7
	}
	if containsAny(lower, []string{"premium", "deluxe", "special"}) {
		price *= 1.5
	}

	return round2(price)
}

// resolveCategory matches concatenated name+category+alias text against
// the keyword table, in the fixed category order.
func (n *Normalizer) resolveCategory(raw map[string]interface{}, name string) string {
	var parts []string
	parts = append(parts, name)
	for _, key := range []string{"category", "categoryName", "productCategory", "alias", "tags", "type"} {
		if s, ok := asString(raw[key]); ok {
			parts = append(parts, s)
		}
	}
	haystack := strings.ToLower(strings.Join(parts, " "))

	for _, category := range categoryOrder {
		if containsAny(haystack, categoryKeywords[category]) {
			return category
		}
	}
	return domain.CategoryOther
}

// resolveImage runs the image ladder: content-addressed image identifier,
// inline-encoded image, plain URL, then a category stock photo.
func (n *Normalizer) resolveImage(raw map[string]interface{}, category string, id int) (string, bool) {
	for _, key := range imageUIDKeys {
		if s, ok := asString(raw[key]); ok && len(s) >= 10 {
			return fmt.Sprintf("%s/file/getImage?imageUid=%s", n.imageBaseURL, s), false
		}
	}

	for _, key := range imageURLKeys {
		s, ok := asString(raw[key])
		if !ok {
			continue
		}
		if strings.HasPrefix(s, inlineImagePrefix) || strings.HasPrefix(s, "http") {
			return s, false
		}
	}

	return stockPhotoURL(category, id), true
}

// stockPhotoURL returns a category-keyed placeholder image, parameterized
// by product id so items stay visually distinct.
func stockPhotoURL(category string, id int) string {
	return fmt.Sprintf("https://source.unsplash.com/400x300/?%s,food&sig=%d", category, id)
}

// resolveAllergens scans name and description for every allergen keyword
// group; all matches are returned, not just the first.
func resolveAllergens(name, description string) []string {
	haystack := strings.ToLower(name + " " + description)
	allergens := []string{}
	for _, tag := range allergenOrder {
		if containsAny(haystack, allergenKeywords[tag]) {
			allergens = append(allergens, tag)
		}
	}
	return allergens
}

// resolveAvailability applies the negative-availability table: the
// product is unavailable only when an explicit negative signal appears.
func resolveAvailability(raw map[string]interface{}) bool {
	if raw["isAvailable"] == false || raw["available"] == false {
		return false
	}
	if s, ok := asString(raw["status"]); ok {
		switch strings.ToLower(s) {
		case "unavailable", "disabled":
			return false
		}
	}
	if raw["inStock"] == false || raw["isActive"] == false {
		return false
	}
	if raw["isDisabled"] == true {
		return false
	}
	for _, key := range []string{"stock", "quantity"} {
		if _, present := raw[key]; !present {
			continue
		}
		if f, ok := asFloat(raw[key]); ok && f <= 0 {
			return false
		}
	}
	return true
}

// resolvePrepTime computes category base minutes adjusted by name
// keywords, clamped to [1,30].
func resolvePrepTime(category, name string) int {
	minutes, ok := prepTimeBase[category]
	if !ok {
		minutes = prepTimeBase[domain.CategoryOther]
	}

	lower := strings.ToLower(name)
	if containsAny(lower, []string{"simple", "quick"}) {
		minutes -= 3
	}
	if containsAny(lower, []string{"special", "deluxe", "custom"}) {
		minutes += 5
	}
	if containsAny(lower, []string{"large", "big", "xl"}) {
		minutes += 2
	}

	if minutes < 1 {
		minutes = 1
	}
	if minutes > 30 {
		minutes = 30
	}
	return minutes
}

// resolvePopularity honors explicit flags, then name keywords, then a
// deterministic id-based sample so some items are always featured.
func resolvePopularity(raw map[string]interface{}, name string, id int) bool {
	if raw["isPopular"] == true || raw["popular"] == true {
		return true
	}
	lower := strings.ToLower(name)
	if containsAny(lower, []string{"popular", "bestseller", "favorite", "signature"}) {
		return true
	}
	return id%7 == 0
}

func firstIntValue(m map[string]interface{}, keys []string) (int, bool) {
	for _, key := range keys {
		if i, ok := asInt(m[key]); ok && i != 0 {
			return i, true
		}
	}
	return 0, false
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func hashOf(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
