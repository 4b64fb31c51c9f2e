package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leenicide/bread-made-easy/models"
)

// EnsureSsoProvider upserts the configured provider row at startup.
func (s *Store) EnsureSsoProvider(ctx context.Context, name string) (*models.SsoProvider, error) {
	const op = "EnsureSsoProvider"
	provider := models.SsoProvider{Name: name}
	result := s.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&provider)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to ensure sso provider, err=%w", op, result.Error)
	}
	return &provider, nil
}

// FindOrCreateBySSOIdentity resolves the SSO subject to a local user,
// creating the user and identity link on first sign-in.
func (s *Store) FindOrCreateBySSOIdentity(ctx context.Context, providerName, subject, username, email string) (*models.User, error) {
	const op = "FindOrCreateBySSOIdentity"
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		provider := models.SsoProvider{Name: providerName}
		if result := tx.Where(&provider).First(&provider); result.Error != nil {
			return fmt.Errorf("fail to find sso provider %s, err=%w", providerName, result.Error)
		}
		identity := models.UserIdentity{
			SsoProviderID: provider.ID,
			Identity:      subject,
		}
		result := tx.Preload("User").Where(&identity).First(&identity)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("fail to get user identity, err=%w", result.Error)
		}
		if result.Error == nil {
			user = *identity.User
			return nil
		}
		identity.User = &models.User{
			Username: username,
			Email:    email,
			Role:     models.RoleUser,
		}
		if result := tx.Create(&identity); result.Error != nil {
			return fmt.Errorf("fail to create user identity, err=%w", result.Error)
		}
		user = *identity.User
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", op, err)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "GetUser"
	user := models.User{ID: id}
	result := s.db.WithContext(ctx).Preload("Identities.SsoProvider").First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error)
	}
	return &user, nil
}

func (s *Store) UpdateUsername(ctx context.Context, id uuid.UUID, username string) error {
	const op = "UpdateUsername"
	result := s.db.WithContext(ctx).Model(&models.User{ID: id}).Update("username", username)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update username, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "ListUsers"
	var users []models.User
	if result := s.db.WithContext(ctx).Order("created_at").Find(&users); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list users, err=%w", op, result.Error)
	}
	return users, nil
}

// SetUserRole promotes or demotes an account.
func (s *Store) SetUserRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	const op = "SetUserRole"
	if !role.Valid() {
		return fmt.Errorf("[%s] %w: %q", op, ErrInvalidTransition, role)
	}
	result := s.db.WithContext(ctx).Model(&models.User{ID: id}).Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to set user role, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountImagesSince reports uploads by one user after the cutoff, for
// the hourly rate limit.
func (s *Store) CountImagesSince(ctx context.Context, uploaderID uuid.UUID, since time.Time) (int64, error) {
	const op = "CountImagesSince"
	var count int64
	result := s.db.WithContext(ctx).Model(&models.Image{}).
		Where("uploader_id = ? AND created_at > ?", uploaderID, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to count uploaded images, err=%w", op, result.Error)
	}
	return count, nil
}

func (s *Store) CreateImage(ctx context.Context, image *models.Image) error {
	const op = "CreateImage"
	if result := s.db.WithContext(ctx).Create(image); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create image, err=%w", op, result.Error)
	}
	return nil
}
