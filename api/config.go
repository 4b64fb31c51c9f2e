package api

import (
	"crypto/ed25519"
	"time"
)

type ServerConfig struct {
	// ID names this instance inside the payment consumer group.
	ID string

	OIDC     OIDCConfig
	S3       S3Config
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Session  SessionConfig
	Stripe   StripeConfig
	Payments PaymentsConfig

	// BidIncrement is the minimum amount, in whole dollars, a bid must
	// exceed the current price by. Zero selects the store default.
	BidIncrement int64
}

type OIDCConfig struct {
	Providers map[string]OIDCProviderConfig
}

type OIDCProviderConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string
	// RateLimitPerHour caps image uploads per user. Zero disables the cap.
	RateLimitPerHour int64
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key this instance writes.
	KeyPrefix string
	// ConsumerGroup is the group name for the payment event stream.
	ConsumerGroup string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	// Bids carries bid events for the SSE fan-out.
	Bids string
	// Payments carries payment processor events awaiting persistence.
	Payments string
}

type AuthConfig struct {
	PrivateKey     ed25519.PrivateKey
	Issuer         string
	Audience       string
	ExpireDuration time.Duration
}

type SessionConfig struct {
	KeyForCookie string
	CookieMaxAge time.Duration
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

type PaymentsConfig struct {
	// SweepInterval is how often expired auctions are settled.
	SweepInterval time.Duration
	// VerifyInterval is how often unsettled purchases are re-checked
	// against the processor.
	VerifyInterval time.Duration
	// VerifyBatchSize bounds how many purchases one verify pass loads.
	VerifyBatchSize int
}
