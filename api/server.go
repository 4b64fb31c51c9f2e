package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/leenicide/bread-made-easy/adapters/oidc"
	redisAdapter "github.com/leenicide/bread-made-easy/adapters/redis"
	internalS3 "github.com/leenicide/bread-made-easy/adapters/s3"
	"github.com/leenicide/bread-made-easy/adapters/sse"
	stripeAdapter "github.com/leenicide/bread-made-easy/adapters/stripe"
	"github.com/leenicide/bread-made-easy/models"
	"github.com/leenicide/bread-made-easy/store"
)

type ServerImpl struct {
	oidcProviders   map[string]*oidc.Provider
	sseManager      sse.IConnectionManager[BidEvent]
	s3Operator      *internalS3.S3Operator
	htmlChecker     *bluemonday.Policy
	redisClient     *redis.Client
	paymentProducer *redisAdapter.Producer[PaymentEvent]
	paymentConsumer redisAdapter.IGroupConsumer[PaymentEvent]
	payments        *stripeAdapter.Client
	store           *store.Store
	db              *gorm.DB
	wg              sync.WaitGroup
	cancelFunc      context.CancelFunc

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	oidcProviders := make(map[string]*oidc.Provider, len(config.OIDC.Providers))
	for provider, providerConfig := range config.OIDC.Providers {
		oidcProvider, err := oidc.NewProvider(providerConfig.IssuerURL, providerConfig.ClientID, providerConfig.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to initial OIDC provider, provider=%s, err=%w", op, provider, err)
		}
		oidcProviders[provider] = oidcProvider
	}

	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	s3Operator, err := internalS3.NewS3Operator(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create S3 operator, err=%w", op, err)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("[%s] Fail to migrate schema, err=%w", op, err)
	}

	storeOpts := []store.Option{}
	if config.BidIncrement > 0 {
		storeOpts = append(storeOpts, store.WithBidIncrement(config.BidIncrement))
	}
	dataStore := store.New(db, storeOpts...)
	for provider := range oidcProviders {
		if _, err := dataStore.EnsureSsoProvider(context.Background(), provider); err != nil {
			return nil, fmt.Errorf("[%s] Fail to ensure sso provider %s, err=%w", op, provider, err)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// Bid events fan out through a shared stream so every instance
	// broadcasts the same feed to its SSE subscribers.
	sseBroker := sse.NewConsumer[sse.PublishRequest[BidEvent]](redisClient, config.Redis.StreamKeys.Bids, slog.Default())
	sseManager := sse.NewConnectionManager[BidEvent](
		sse.WithManagerLogger[BidEvent](slog.Default()),
		sse.WithManagerBroker[BidEvent](sseBroker),
	)

	paymentProducer, err := redisAdapter.NewProducer[PaymentEvent](
		redisClient,
		config.Redis.StreamKeys.Payments,
		redisAdapter.WithProducerLogger[PaymentEvent](slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create payment producer, err=%w", op, err)
	}
	paymentConsumer, err := redisAdapter.NewGroupConsumer[PaymentEvent](
		redisClient,
		config.Redis.StreamKeys.Payments,
		config.Redis.ConsumerGroup,
		config.ID,
		redisAdapter.WithGroupConsumerLogger[PaymentEvent](slog.Default()),
		redisAdapter.WithGroupConsumerStrictOrdering[PaymentEvent](true),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create payment consumer, err=%w", op, err)
	}

	return &ServerImpl{
		oidcProviders:   oidcProviders,
		sseManager:      sseManager,
		s3Operator:      s3Operator,
		htmlChecker:     bluemonday.UGCPolicy(),
		redisClient:     redisClient,
		paymentProducer: paymentProducer,
		paymentConsumer: paymentConsumer,
		payments:        stripeAdapter.NewClient(config.Stripe.APIKey, config.Stripe.WebhookSecret),
		store:           dataStore,
		db:              db,
		config:          config,
	}, nil
}

func (impl *ServerImpl) Start() error {
	const op = "Start"
	impl.sseManager.Start()
	impl.paymentProducer.Start()
	if err := impl.paymentConsumer.Start(); err != nil {
		return fmt.Errorf("[%s] Fail to start payment consumer, err=%w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	impl.cancelFunc = cancel

	slog.Info("Start payment synchronization worker")
	impl.wg.Add(1)
	go impl.runPaymentWorker(ctx)

	slog.Info("Start auction settlement worker")
	impl.wg.Add(1)
	go impl.runSettlementWorker(ctx)

	slog.Info("Start payment verification worker")
	impl.wg.Add(1)
	go impl.runVerifyWorker(ctx)

	return nil
}

func (impl *ServerImpl) Close() {
	impl.paymentConsumer.Close()
	if impl.cancelFunc != nil {
		impl.cancelFunc()
	}
	impl.wg.Wait()
	impl.paymentProducer.Close()
	impl.sseManager.Done()
	impl.redisClient.Close()
}

// runPaymentWorker drains the payment event stream and applies each
// processor status to the matching purchase row.
func (impl *ServerImpl) runPaymentWorker(ctx context.Context) {
	logger := slog.Default().With(slog.String("caller", "PaymentSynchronize"))
	defer impl.wg.Done()
	defer slog.Info("Payment synchronization worker stopped")
	ch := impl.paymentConsumer.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			logger.Debug("Receive payment event", slog.String("eventID", msg.Data.EventID))
			handleErr := impl.applyPaymentEvent(ctx, msg.Data)
			if handleErr != nil {
				logger.Error("Fail to synchronize payment", slog.Any("error", handleErr))
				if err := msg.Fail(ctx, handleErr); err != nil {
					logger.Error("Fail to fail message", slog.Any("error", err))
				}
				continue
			}
			if err := msg.Done(ctx); err != nil {
				logger.Error("Sync success but fail to done message", slog.Any("error", err))
				if err := msg.Fail(ctx, err); err != nil {
					logger.Error("Sync success but fail to fail message", slog.Any("error", err))
				}
				continue
			}
			logger.Debug("Synchronize success")
		}
	}
}

func (impl *ServerImpl) applyPaymentEvent(ctx context.Context, event PaymentEvent) error {
	next := models.PurchaseStatus(event.Status)
	if !next.Valid() {
		return fmt.Errorf("invalid purchase status %q", event.Status)
	}
	_, err := impl.store.TransitionPurchaseByIntent(ctx, event.IntentID, next)
	if errors.Is(err, store.ErrNotFound) {
		// Bid authorizations carry intents with no purchase row yet.
		// Their outcome is applied at settlement instead.
		return nil
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		// Out of order delivery against an already terminal purchase.
		return nil
	}
	return err
}

// runSettlementWorker periodically closes expired auctions, captures
// the winning authorization and releases the losing ones. A
// distributed lock keeps concurrent instances from double settling.
func (impl *ServerImpl) runSettlementWorker(ctx context.Context) {
	logger := slog.Default().With(slog.String("caller", "AuctionSettlement"))
	defer impl.wg.Done()
	defer slog.Info("Auction settlement worker stopped")

	interval := impl.config.Payments.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := impl.settleExpiredAuctions(ctx, logger); err != nil {
				logger.Error("Fail to settle expired auctions", slog.Any("error", err))
			}
		}
	}
}

func (impl *ServerImpl) settleExpiredAuctions(ctx context.Context, logger *slog.Logger) error {
	lockKey := impl.config.Redis.KeyPrefix + "lock:settlement-sweep"
	dMutex := redisAdapter.NewAutoRenewMutex(impl.redisClient, lockKey, redisAdapter.WithAutoRenewMutexSkipLockError(true))
	lockCtx, err := dMutex.Lock(ctx)
	if err != nil {
		// Another instance is sweeping.
		logger.Debug("Skip sweep, lock is held elsewhere", slog.Any("error", err))
		return nil
	}
	defer func() {
		if _, err := dMutex.Unlock(); err != nil {
			logger.Warn("Fail to release sweep lock", slog.Any("error", err))
		}
	}()

	settlements, err := impl.store.SettleExpired(lockCtx, time.Now())
	if err != nil {
		return err
	}
	for _, settlement := range settlements {
		logger.Info("Auction settled", slog.String("auctionID", settlement.AuctionID.String()), slog.Int64("amount", settlement.Amount))
		impl.finishSettlement(lockCtx, logger, settlement)
	}
	return nil
}

// finishSettlement captures the winner's payment authorization and
// cancels every losing one. Failures are logged and retried by the
// verification worker, never propagated.
func (impl *ServerImpl) finishSettlement(ctx context.Context, logger *slog.Logger, settlement store.Settlement) {
	auction, err := impl.store.GetAuction(ctx, settlement.AuctionID)
	if err != nil {
		logger.Error("Fail to load settled auction", slog.String("auctionID", settlement.AuctionID.String()), slog.Any("error", err))
		return
	}

	var winningIntent string
	if settlement.Purchase != nil {
		winningIntent = settlement.Purchase.PaymentIntentID
	}
	for _, bid := range auction.BidRecords {
		if bid.PaymentIntentID == "" || bid.PaymentIntentID == winningIntent {
			continue
		}
		if _, err := impl.payments.CancelIntent(ctx, bid.PaymentIntentID); err != nil {
			logger.Warn("Fail to cancel losing authorization", slog.String("intentID", bid.PaymentIntentID), slog.Any("error", err))
		}
	}
	if winningIntent == "" {
		return
	}
	intent, err := impl.payments.CaptureIntent(ctx, winningIntent)
	if err != nil {
		logger.Error("Fail to capture winning authorization", slog.String("intentID", winningIntent), slog.Any("error", err))
		return
	}
	next := stripeAdapter.MapIntentStatus(intent.Status)
	if _, err := impl.store.TransitionPurchaseByIntent(ctx, winningIntent, next); err != nil {
		logger.Error("Fail to transition settled purchase", slog.String("intentID", winningIntent), slog.Any("error", err))
	}
}

// runVerifyWorker re-checks non-terminal purchases against the
// processor, covering webhook deliveries that never arrived.
func (impl *ServerImpl) runVerifyWorker(ctx context.Context) {
	logger := slog.Default().With(slog.String("caller", "PaymentVerify"))
	defer impl.wg.Done()
	defer slog.Info("Payment verification worker stopped")

	interval := impl.config.Payments.VerifyInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	batch := impl.config.Payments.VerifyBatchSize
	if batch <= 0 {
		batch = 50
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := impl.verifyUnsettledPurchases(ctx, logger, batch); err != nil {
				logger.Error("Fail to verify unsettled purchases", slog.Any("error", err))
			}
		}
	}
}

func (impl *ServerImpl) verifyUnsettledPurchases(ctx context.Context, logger *slog.Logger, batch int) error {
	lockKey := impl.config.Redis.KeyPrefix + "lock:verify-sweep"
	dMutex := redisAdapter.NewAutoRenewMutex(impl.redisClient, lockKey, redisAdapter.WithAutoRenewMutexSkipLockError(true))
	lockCtx, err := dMutex.Lock(ctx)
	if err != nil {
		// Another instance is verifying.
		logger.Debug("Skip verify pass, lock is held elsewhere", slog.Any("error", err))
		return nil
	}
	defer func() {
		if _, err := dMutex.Unlock(); err != nil {
			logger.Warn("Fail to release verify lock", slog.Any("error", err))
		}
	}()

	purchases, err := impl.store.ListUnsettledPurchases(lockCtx, batch)
	if err != nil {
		return err
	}
	for _, purchase := range purchases {
		if purchase.PaymentIntentID == "" {
			continue
		}
		intent, err := impl.payments.GetIntent(lockCtx, purchase.PaymentIntentID)
		if err != nil {
			logger.Warn("Fail to fetch intent", slog.String("intentID", purchase.PaymentIntentID), slog.Any("error", err))
			continue
		}
		next := stripeAdapter.MapIntentStatus(intent.Status)
		if next == purchase.Status {
			continue
		}
		if _, err := impl.store.TransitionPurchaseByIntent(lockCtx, purchase.PaymentIntentID, next); err != nil {
			logger.Warn("Fail to transition purchase", slog.String("intentID", purchase.PaymentIntentID), slog.Any("error", err))
		}
	}
	return nil
}

func generateID(prefix string) (string, error) {
	const op = "generateID"
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("[%s] Fail to generate unique id, err=%w", op, err)
	}
	return prefix + "_" + base64.URLEncoding.EncodeToString(bytes), nil
}
