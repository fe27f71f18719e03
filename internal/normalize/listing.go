package normalize

import (
	"qrmenu/internal/domain"

	"go.uber.org/zap"
)

// categoryUIDKeys are the aliases under which a product may reference its
// category's identifier.
var categoryUIDKeys = []string{"productcategoryUid", "productCategoryUid", "categoryUid", "category_uid", "categoryId"}

// LocateProducts finds the actual product array inside whatever envelope
// the POS wrapped it in: payload.records, payload itself, the response
// root, then data. Empty or unrecognized shapes yield an empty slice,
// never an error.
func LocateProducts(response interface{}) []map[string]interface{} {
	candidates := []interface{}{
		atPath(response, "payload.records"),
		atPath(response, "payload"),
		response,
		atPath(response, "data"),
	}

	for _, candidate := range candidates {
		items, ok := candidate.([]interface{})
		if !ok {
			continue
		}
		records := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				records = append(records, m)
			}
		}
		return records
	}
	return nil
}

// Products normalizes a selling-products response and filters out
// anything unavailable.
func (n *Normalizer) Products(response interface{}) []domain.Product {
	records := LocateProducts(response)
	products := make([]domain.Product, 0, len(records))
	for _, record := range records {
		product := n.Product(record)
		if !product.Available {
			continue
		}
		products = append(products, product)
	}
	return products
}

// Category normalizes one raw POS category object.
func (n *Normalizer) Category(raw map[string]interface{}) domain.Category {
	uid, _ := firstString(raw, uidKeys)
	name, _ := firstString(raw, nameKeys)
	description, _ := firstString(raw, descriptionKeys)
	return domain.Category{UID: uid, Name: name, Description: description}
}

// CategoriesWithProducts associates each product to its category by
// matching the category uid against the product's category-identifier
// aliases. Categories that end up empty are dropped.
func (n *Normalizer) CategoriesWithProducts(categoriesResponse, productsResponse interface{}) []domain.CategoryWithProducts {
	categoryRecords := LocateProducts(categoriesResponse)
	productRecords := LocateProducts(productsResponse)

	byCategory := make(map[string][]domain.Product)
	for _, record := range productRecords {
		product := n.Product(record)
		if !product.Available {
			continue
		}
		uid, ok := firstString(record, categoryUIDKeys)
		if !ok {
			continue
		}
		byCategory[uid] = append(byCategory[uid], product)
	}

	result := make([]domain.CategoryWithProducts, 0, len(categoryRecords))
	for _, record := range categoryRecords {
		category := n.Category(record)
		products := byCategory[category.UID]
		if len(products) == 0 {
			n.logger.Debug("Dropping category with no matched products",
				zap.String("uid", category.UID),
				zap.String("name", category.Name),
			)
			continue
		}
		result = append(result, domain.CategoryWithProducts{
			Category: category,
			Products: products,
		})
	}
	return result
}
