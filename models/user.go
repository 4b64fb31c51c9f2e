package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account in the marketplace. Role gates access to the
// admin surface.
type User struct {
	gorm.Model

	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username string    `gorm:"type:varchar(255);not null"`
	Email    string    `gorm:"type:varchar(255)"`
	Role     Role      `gorm:"type:varchar(16);not null;default:'user'"`

	Identities []UserIdentity `gorm:"foreignKey:UserID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// SsoProvider is one supported SSO identity provider.
type SsoProvider struct {
	gorm.Model

	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:text;not null;unique;<-:create"`
}

func (p *SsoProvider) BeforeCreate(tx *gorm.DB) error {
	if p.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// UserIdentity links a user to their subject at one SSO provider.
type UserIdentity struct {
	gorm.Model

	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SsoProviderID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_identity_provider_identity,where:deleted_at IS NULL;not null;<-:create"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Identity      string    `gorm:"type:text;uniqueIndex:idx_user_identity_provider_identity,where:deleted_at IS NULL;not null;<-:create"`

	SsoProvider *SsoProvider `gorm:"foreignKey:SsoProviderID"`
	User        *User        `gorm:"foreignKey:UserID"`
}

func (i *UserIdentity) BeforeCreate(tx *gorm.DB) error {
	if i.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	i.ID = id
	return nil
}

// Image is an upload audit row used to rate limit image uploads.
type Image struct {
	gorm.Model

	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Url        string    `gorm:"type:text;not null;<-:create"`

	Uploader *User `gorm:"foreignKey:UploaderID"`
}

func (img *Image) BeforeCreate(tx *gorm.DB) error {
	if img.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	img.ID = id
	return nil
}

// All lists every model for schema migration at startup.
func All() []any {
	return []any{
		&User{},
		&SsoProvider{},
		&UserIdentity{},
		&Category{},
		&Funnel{},
		&Auction{},
		&Bid{},
		&Purchase{},
		&CustomRequest{},
		&LeaseRequest{},
		&Image{},
		&WebhookEvent{},
	}
}
