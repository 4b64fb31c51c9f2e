package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leenicide/bread-made-easy/models"
)

func (s *Store) CreateCustomRequest(ctx context.Context, request *models.CustomRequest) error {
	const op = "CreateCustomRequest"
	request.Status = models.RequestPending
	if result := s.db.WithContext(ctx).Create(request); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create custom request, err=%w", op, result.Error)
	}
	return nil
}

func (s *Store) ListCustomRequests(ctx context.Context, status *models.RequestStatus) ([]models.CustomRequest, error) {
	const op = "ListCustomRequests"
	query := s.db.WithContext(ctx).Model(&models.CustomRequest{}).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var requests []models.CustomRequest
	if result := query.Find(&requests); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list custom requests, err=%w", op, result.Error)
	}
	return requests, nil
}

// TransitionCustomRequest moves a lead through the request lifecycle.
// Setting the current status again succeeds without touching the row,
// so repeated admin clicks do not reorder the list.
func (s *Store) TransitionCustomRequest(ctx context.Context, id uuid.UUID, next models.RequestStatus) (*models.CustomRequest, error) {
	const op = "TransitionCustomRequest"
	var request models.CustomRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request = models.CustomRequest{ID: id}
		if result := tx.First(&request); result.Error != nil {
			return translateNotFound(result.Error)
		}
		if request.Status == next {
			return nil
		}
		if !request.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, request.Status, next)
		}
		request.Status = next
		return tx.Model(&models.CustomRequest{ID: id}).Update("status", next).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("[%s] Fail to transition custom request, err=%w", op, err)
	}
	return &request, nil
}

func (s *Store) CreateLeaseRequest(ctx context.Context, request *models.LeaseRequest) error {
	const op = "CreateLeaseRequest"
	funnel := models.Funnel{ID: request.FunnelID}
	if result := s.db.WithContext(ctx).First(&funnel); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("[%s] Fail to find funnel, err=%w", op, result.Error)
	}
	if !funnel.LeaseAvailable {
		return ErrNotLeasable
	}
	request.Status = models.RequestPending
	if result := s.db.WithContext(ctx).Create(request); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create lease request, err=%w", op, result.Error)
	}
	return nil
}

func (s *Store) ListLeaseRequests(ctx context.Context, status *models.RequestStatus) ([]models.LeaseRequest, error) {
	const op = "ListLeaseRequests"
	query := s.db.WithContext(ctx).Preload("Funnel").Model(&models.LeaseRequest{}).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var requests []models.LeaseRequest
	if result := query.Find(&requests); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list lease requests, err=%w", op, result.Error)
	}
	return requests, nil
}

func (s *Store) TransitionLeaseRequest(ctx context.Context, id uuid.UUID, next models.RequestStatus) (*models.LeaseRequest, error) {
	const op = "TransitionLeaseRequest"
	var request models.LeaseRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request = models.LeaseRequest{ID: id}
		if result := tx.First(&request); result.Error != nil {
			return translateNotFound(result.Error)
		}
		if request.Status == next {
			return nil
		}
		if !request.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, request.Status, next)
		}
		request.Status = next
		return tx.Model(&models.LeaseRequest{ID: id}).Update("status", next).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("[%s] Fail to transition lease request, err=%w", op, err)
	}
	return &request, nil
}
