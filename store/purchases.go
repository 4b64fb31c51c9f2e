package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leenicide/bread-made-easy/models"
)

func (s *Store) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	const op = "CreatePurchase"
	if !purchase.Kind.Valid() {
		return fmt.Errorf("[%s] Invalid purchase kind: %q", op, purchase.Kind)
	}
	if purchase.Status == "" {
		purchase.Status = models.PurchasePending
	}
	if result := s.db.WithContext(ctx).Create(purchase); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create purchase, err=%w", op, result.Error)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	const op = "GetPurchase"
	purchase := models.Purchase{ID: id}
	if result := s.db.WithContext(ctx).Preload("Funnel").Preload("Buyer").First(&purchase); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find purchase, err=%w", op, result.Error)
	}
	return &purchase, nil
}

func (s *Store) GetPurchaseByIntent(ctx context.Context, intentID string) (*models.Purchase, error) {
	const op = "GetPurchaseByIntent"
	var purchase models.Purchase
	result := s.db.WithContext(ctx).Where("payment_intent_id = ?", intentID).First(&purchase)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find purchase, err=%w", op, result.Error)
	}
	return &purchase, nil
}

// AttachPaymentIntent binds a processor intent to a pending purchase.
func (s *Store) AttachPaymentIntent(ctx context.Context, purchaseID uuid.UUID, intentID string) error {
	const op = "AttachPaymentIntent"
	result := s.db.WithContext(ctx).Model(&models.Purchase{ID: purchaseID}).Update("payment_intent_id", intentID)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to attach payment intent, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionPurchaseByIntent applies a processor-reported status to
// the purchase identified by its intent. The transition table guards
// against terminal states being reopened; re-reporting the current
// status is a no-op so webhook redeliveries are harmless.
func (s *Store) TransitionPurchaseByIntent(ctx context.Context, intentID string, next models.PurchaseStatus) (*models.Purchase, error) {
	const op = "TransitionPurchaseByIntent"
	var purchase models.Purchase
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("payment_intent_id = ?", intentID).First(&purchase)
		if result.Error != nil {
			return translateNotFound(result.Error)
		}
		if purchase.Status == next {
			return nil
		}
		if !purchase.Status.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, purchase.Status, next)
		}
		purchase.Status = next
		return tx.Model(&models.Purchase{ID: purchase.ID}).Update("status", next).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("[%s] Fail to transition purchase, err=%w", op, err)
	}
	return &purchase, nil
}

type ListPurchasesParams struct {
	Status  *models.PurchaseStatus
	BuyerID *uuid.UUID
	Kind    *models.PurchaseKind
}

func (s *Store) ListPurchases(ctx context.Context, params ListPurchasesParams) ([]models.Purchase, error) {
	const op = "ListPurchases"
	query := s.db.WithContext(ctx).Preload("Funnel").Preload("Buyer").Model(&models.Purchase{}).Order("created_at DESC")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.BuyerID != nil {
		query = query.Where("buyer_id = ?", *params.BuyerID)
	}
	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}
	var purchases []models.Purchase
	if result := query.Find(&purchases); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list purchases, err=%w", op, result.Error)
	}
	return purchases, nil
}

// ListUnsettledPurchases returns purchases still waiting on the
// processor, oldest first, for the verify-poll sweep.
func (s *Store) ListUnsettledPurchases(ctx context.Context, limit int) ([]models.Purchase, error) {
	const op = "ListUnsettledPurchases"
	if limit <= 0 {
		limit = 50
	}
	var purchases []models.Purchase
	result := s.db.WithContext(ctx).
		Where("status IN ? AND payment_intent_id <> ''", []models.PurchaseStatus{models.PurchasePending, models.PurchaseProcessing}).
		Order("created_at").
		Limit(limit).
		Find(&purchases)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list unsettled purchases, err=%w", op, result.Error)
	}
	return purchases, nil
}

// MarkWebhookEvent records a processor event id, returning
// ErrDuplicateEvent when it was already processed.
func (s *Store) MarkWebhookEvent(ctx context.Context, eventID, eventType string) error {
	const op = "MarkWebhookEvent"
	event := models.WebhookEvent{EventID: eventID, Type: eventType}
	result := s.db.WithContext(ctx).Create(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("[%s] Fail to record webhook event, err=%w", op, result.Error)
	}
	return nil
}
