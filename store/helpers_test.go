package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/leenicide/bread-made-easy/models"
)

func setupStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return New(db, opts...)
}

func seedUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, Role: models.RoleUser}
	require.NoError(t, s.db.Create(&user).Error)
	return &user
}

func seedFunnel(t *testing.T, s *Store, price int64, leasable bool) *models.Funnel {
	t.Helper()
	funnel := models.Funnel{
		Title:          "Webinar Funnel",
		Description:    "A funnel",
		Price:          price,
		LeaseAvailable: leasable,
		Active:         true,
	}
	require.NoError(t, s.CreateFunnel(context.Background(), &funnel))
	return &funnel
}

type auctionSeed struct {
	startingPrice int64
	buyNowPrice   *int64
	status        models.AuctionStatus
	startTime     time.Time
	endTime       time.Time
}

func seedAuction(t *testing.T, s *Store, owner *models.User, funnel *models.Funnel, seed auctionSeed) *models.Auction {
	t.Helper()
	if seed.startTime.IsZero() {
		seed.startTime = time.Now().Add(-time.Hour)
	}
	if seed.endTime.IsZero() {
		seed.endTime = time.Now().Add(time.Hour)
	}
	if seed.status == "" {
		seed.status = models.AuctionActive
	}
	auction := models.Auction{
		FunnelID:      funnel.ID,
		CreatedByID:   owner.ID,
		Title:         "Webinar Funnel Auction",
		Description:   "An auction",
		StartingPrice: seed.startingPrice,
		BuyNowPrice:   seed.buyNowPrice,
		Status:        seed.status,
		StartTime:     seed.startTime,
		EndTime:       seed.endTime,
	}
	require.NoError(t, s.db.Create(&auction).Error)
	return &auction
}
