package catalog

import (
	"context"

	"qrmenu/internal/domain"
	"qrmenu/internal/normalize"
	"qrmenu/internal/pos"

	"go.uber.org/zap"
)

// Service is the listing boundary: whatever goes wrong underneath
// (transport, authentication, malformed payloads), callers get an empty
// slice and never an error. The menu renders empty instead of broken.
type Service struct {
	client     *pos.Client
	normalizer *normalize.Normalizer
	logger     *zap.Logger
}

func NewService(client *pos.Client, normalizer *normalize.Normalizer, logger *zap.Logger) *Service {
	return &Service{
		client:     client,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Categories fetches categories and products in parallel and returns each
// category with its matched products; empty categories are dropped.
func (s *Service) Categories(ctx context.Context) []domain.CategoryWithProducts {
	type fetchResult struct {
		response interface{}
		err      error
	}

	categoriesCh := make(chan fetchResult, 1)
	productsCh := make(chan fetchResult, 1)

	go func() {
		response, err := s.client.FindCategories(ctx)
		categoriesCh <- fetchResult{response, err}
	}()
	go func() {
		response, err := s.client.FindProducts(ctx)
		productsCh <- fetchResult{response, err}
	}()

	categories := <-categoriesCh
	products := <-productsCh

	if categories.err != nil {
		s.logger.Warn("Category listing failed, returning empty menu", zap.Error(categories.err))
		return []domain.CategoryWithProducts{}
	}
	if products.err != nil {
		s.logger.Warn("Product listing failed, returning empty menu", zap.Error(products.err))
		return []domain.CategoryWithProducts{}
	}

	return s.normalizer.CategoriesWithProducts(categories.response, products.response)
}

// SellingProducts fetches the currently selling products, optionally
// scoped to one category. Unavailable products are filtered out.
func (s *Service) SellingProducts(ctx context.Context, categoryUID string) []domain.Product {
	response, err := s.client.FindSellingProducts(ctx, categoryUID)
	if err != nil {
		s.logger.Warn("Selling-product listing failed, returning empty list",
			zap.String("category_uid", categoryUID),
			zap.Error(err),
		)
		return []domain.Product{}
	}
	return s.normalizer.Products(response)
}
