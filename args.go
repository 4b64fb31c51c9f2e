package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/leenicide/bread-made-easy/api"
)

func ParseArgs() Args {
	// server config
	pflag.String("server-url", "0.0.0.0:8080", "")
	pflag.String("server-id", "bme-0", "")

	// oidc config, one provider per flag triple
	pflag.StringSlice("oidc-providers", []string{"google"}, "")
	pflag.String("oidc-google-issuer-url", "https://accounts.google.com", "")
	pflag.String("oidc-google-client-id", "", "")
	pflag.String("oidc-google-client-secret", "", "")
	pflag.String("oidc-microsoft-issuer-url", "https://login.microsoftonline.com/common/v2.0", "")
	pflag.String("oidc-microsoft-client-id", "", "")
	pflag.String("oidc-microsoft-client-secret", "", "")

	// s3 config
	pflag.String("s3-endpoint", "", "")
	pflag.String("s3-bucket", "", "")
	pflag.String("s3-public-base-url", "", "")
	pflag.String("s3-access-key-id", "", "")
	pflag.String("s3-secret-access-key", "", "")
	pflag.Int64("s3-rate-limit-per-hour", 30, "")

	// db config
	pflag.String("db-user", "", "")
	pflag.String("db-password", "", "")
	pflag.String("db-host", "", "")
	pflag.Int("db-port", 5432, "")
	pflag.String("db-database", "", "")
	pflag.String("db-schema", "", "")

	// redis config
	pflag.String("redis-addr", "", "")
	pflag.String("redis-password", "", "")
	pflag.Int("redis-db", 15, "")
	pflag.String("redis-key-prefix", "bme:", "")
	pflag.String("redis-consumer-group", "bme-payments", "")

	// redis stream keys
	pflag.String("redis-stream-key-for-bids", "bme-shared-bid-stream", "")
	pflag.String("redis-stream-key-for-payments", "bme-shared-payment-stream", "")

	// auth config
	pflag.String("auth-private-key", "", "base64 encoded ed25519 private key")
	pflag.String("auth-issuer", "bread-made-easy", "")
	pflag.String("auth-audience", "bread-made-easy", "")
	pflag.Duration("auth-expire-duration", 3*time.Hour, "")

	// session config
	pflag.String("session-key-for-cookie", "bme-session", "")
	pflag.Duration("session-cookie-max-age", 24*time.Hour, "")

	// stripe config
	pflag.String("stripe-api-key", "", "")
	pflag.String("stripe-webhook-secret", "", "")

	// payment worker config
	pflag.Duration("payments-sweep-interval", time.Minute, "")
	pflag.Duration("payments-verify-interval", 5*time.Minute, "")
	pflag.Int("payments-verify-batch-size", 50, "")

	// auction config
	pflag.Int64("bid-increment", 25, "")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("BME")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	providers := map[string]api.OIDCProviderConfig{}
	for _, provider := range viper.GetStringSlice("oidc-providers") {
		providers[provider] = api.OIDCProviderConfig{
			IssuerURL:    viper.GetString("oidc-" + provider + "-issuer-url"),
			ClientID:     viper.GetString("oidc-" + provider + "-client-id"),
			ClientSecret: viper.GetString("oidc-" + provider + "-client-secret"),
		}
	}

	var privateKey ed25519.PrivateKey
	if raw, err := base64.StdEncoding.DecodeString(viper.GetString("auth-private-key")); err == nil && len(raw) == ed25519.PrivateKeySize {
		privateKey = ed25519.PrivateKey(raw)
	}

	// initial arguments
	return Args{
		ServerURL: viper.GetString("server-url"),
		ServerConfig: api.ServerConfig{
			ID: viper.GetString("server-id"),
			OIDC: api.OIDCConfig{
				Providers: providers,
			},
			S3: api.S3Config{
				Endpoint:         viper.GetString("s3-endpoint"),
				Bucket:           viper.GetString("s3-bucket"),
				PublicBaseURL:    viper.GetString("s3-public-base-url"),
				AccessKeyID:      viper.GetString("s3-access-key-id"),
				SecretAccessKey:  viper.GetString("s3-secret-access-key"),
				RateLimitPerHour: viper.GetInt64("s3-rate-limit-per-hour"),
			},
			DB: api.DBConfig{
				User:     viper.GetString("db-user"),
				Password: viper.GetString("db-password"),
				Host:     viper.GetString("db-host"),
				Port:     viper.GetInt("db-port"),
				Database: viper.GetString("db-database"),
				Schema:   viper.GetString("db-schema"),
			},
			Redis: api.RedisConfig{
				Addr:          viper.GetString("redis-addr"),
				Password:      viper.GetString("redis-password"),
				DB:            viper.GetInt("redis-db"),
				KeyPrefix:     viper.GetString("redis-key-prefix"),
				ConsumerGroup: viper.GetString("redis-consumer-group"),
				StreamKeys: api.RedisStreamKeys{
					Bids:     viper.GetString("redis-stream-key-for-bids"),
					Payments: viper.GetString("redis-stream-key-for-payments"),
				},
			},
			Auth: api.AuthConfig{
				PrivateKey:     privateKey,
				Issuer:         viper.GetString("auth-issuer"),
				Audience:       viper.GetString("auth-audience"),
				ExpireDuration: viper.GetDuration("auth-expire-duration"),
			},
			Session: api.SessionConfig{
				KeyForCookie: viper.GetString("session-key-for-cookie"),
				CookieMaxAge: viper.GetDuration("session-cookie-max-age"),
			},
			Stripe: api.StripeConfig{
				APIKey:        viper.GetString("stripe-api-key"),
				WebhookSecret: viper.GetString("stripe-webhook-secret"),
			},
			Payments: api.PaymentsConfig{
				SweepInterval:   viper.GetDuration("payments-sweep-interval"),
				VerifyInterval:  viper.GetDuration("payments-verify-interval"),
				VerifyBatchSize: viper.GetInt("payments-verify-batch-size"),
			},
			BidIncrement: viper.GetInt64("bid-increment"),
		},
	}
}

type Args struct {
	ServerURL    string
	ServerConfig api.ServerConfig
}

func (args Args) Validate() bool {
	if args.ServerURL == "" || args.ServerConfig.Auth.PrivateKey == nil {
		return false
	}
	if args.ServerConfig.Stripe.APIKey == "" {
		return false
	}
	for _, provider := range args.ServerConfig.OIDC.Providers {
		if provider.IssuerURL == "" || provider.ClientID == "" || provider.ClientSecret == "" {
			return false
		}
	}
	return true
}
