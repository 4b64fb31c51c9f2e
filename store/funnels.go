package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/leenicide/bread-made-easy/models"
)

type ListFunnelsParams struct {
	CategoryID     *uuid.UUID
	LeaseAvailable *bool
	ActiveOnly     bool
}

func (s *Store) ListFunnels(ctx context.Context, params ListFunnelsParams) ([]models.Funnel, error) {
	const op = "ListFunnels"
	query := s.db.WithContext(ctx).Preload("Category").Model(&models.Funnel{})
	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}
	if params.LeaseAvailable != nil {
		query = query.Where("lease_available = ?", *params.LeaseAvailable)
	}
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	var funnels []models.Funnel
	if result := query.Order("title").Find(&funnels); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list funnels, err=%w", op, result.Error)
	}
	return funnels, nil
}

func (s *Store) GetFunnel(ctx context.Context, id uuid.UUID) (*models.Funnel, error) {
	const op = "GetFunnel"
	funnel := models.Funnel{ID: id}
	if result := s.db.WithContext(ctx).Preload("Category").First(&funnel); result.Error != nil {
		if err := translateNotFound(result.Error); err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find funnel, err=%w", op, result.Error)
	}
	return &funnel, nil
}

func (s *Store) CreateFunnel(ctx context.Context, funnel *models.Funnel) error {
	const op = "CreateFunnel"
	if result := s.db.WithContext(ctx).Create(funnel); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create funnel, err=%w", op, result.Error)
	}
	return nil
}

// UpdateFunnel writes back every mutable column, so callers must pass
// a fully loaded funnel rather than a sparse patch.
func (s *Store) UpdateFunnel(ctx context.Context, funnel *models.Funnel) error {
	const op = "UpdateFunnel"
	result := s.db.WithContext(ctx).Model(&models.Funnel{ID: funnel.ID}).
		Select("title", "description", "image_url", "category_id", "price", "lease_available", "active").
		Updates(funnel)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update funnel, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFunnel soft-deletes a funnel; existing auctions and purchases
// keep their references.
func (s *Store) DeleteFunnel(ctx context.Context, id uuid.UUID) error {
	const op = "DeleteFunnel"
	result := s.db.WithContext(ctx).Delete(&models.Funnel{ID: id})
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to delete funnel, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "ListCategories"
	var categories []models.Category
	if result := s.db.WithContext(ctx).Order("name").Find(&categories); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list categories, err=%w", op, result.Error)
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	const op = "CreateCategory"
	if result := s.db.WithContext(ctx).Create(category); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create category, err=%w", op, result.Error)
	}
	return nil
}
