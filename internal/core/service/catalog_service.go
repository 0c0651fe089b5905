package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const DefaultPageSize = 12

type CatalogService struct {
	repo     port.CatalogRepository
	pageSize int
}

func NewCatalogService(repo port.CatalogRepository, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CatalogService{repo: repo, pageSize: pageSize}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// ListProducts always uses the service page size; the caller only picks the
// page.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductPage, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.CategorySlug = strings.TrimSpace(filter.CategorySlug)
	filter.PageSize = s.pageSize
	if filter.Page < 1 {
		filter.Page = 1
	}

	page, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return domain.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	return page, nil
}

func (s *CatalogService) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 8
	}
	return s.repo.ListFeatured(ctx, limit)
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}
