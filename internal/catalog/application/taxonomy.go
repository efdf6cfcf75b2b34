package application

import (
	"context"
	"strings"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type NewCategory struct {
	Name        string
	Description string
	ParentID    *int64
}

func (s *Service) CreateCategory(ctx context.Context, in NewCategory) (domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	slug := domain.Slugify(name)
	if slug == "" {
		return domain.Category{}, apperr.Validation("name is required")
	}
	if err := s.checkRefs(ctx, in.ParentID, nil); err != nil {
		return domain.Category{}, err
	}
	return s.repo.CreateCategory(ctx, domain.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		ParentID:    in.ParentID,
		IsActive:    true,
	})
}

func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	if id <= 0 {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	return s.repo.GetCategoryBySlug(ctx, strings.TrimSpace(slug))
}

func (s *Service) ListCategories(ctx context.Context, f domain.CategoryFilter) ([]domain.Category, error) {
	if f.ParentID < 0 {
		return nil, apperr.Validation("invalid parent %d", f.ParentID)
	}
	return s.repo.ListCategories(ctx, f)
}

type NewBrand struct {
	Name        string
	Description string
}

func (s *Service) CreateBrand(ctx context.Context, in NewBrand) (domain.Brand, error) {
	name := strings.TrimSpace(in.Name)
	slug := domain.Slugify(name)
	if slug == "" {
		return domain.Brand{}, apperr.Validation("name is required")
	}
	return s.repo.CreateBrand(ctx, domain.Brand{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
	})
}

func (s *Service) GetBrand(ctx context.Context, id int64) (domain.Brand, error) {
	if id <= 0 {
		return domain.Brand{}, domain.ErrBrandNotFound
	}
	return s.repo.GetBrand(ctx, id)
}

func (s *Service) GetBrandBySlug(ctx context.Context, slug string) (domain.Brand, error) {
	return s.repo.GetBrandBySlug(ctx, strings.TrimSpace(slug))
}

func (s *Service) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	return s.repo.ListBrands(ctx)
}
