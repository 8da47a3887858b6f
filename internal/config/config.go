package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultTamaraURL = "https://api-sandbox.tamara.co"
	defaultTabbyURL  = "https://api.tabby.ai"
)

type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// IsConfigured reports whether the card processor has the credentials it
// needs to create and verify payments.
func (c StripeConfig) IsConfigured() bool {
	return c.SecretKey != "" && c.WebhookSecret != ""
}

type TamaraConfig struct {
	APIToken        string
	APIURL          string
	NotificationKey string
}

func (c TamaraConfig) IsConfigured() bool {
	return c.APIToken != "" && c.NotificationKey != "" && c.APIURL != ""
}

type TabbyConfig struct {
	SecretKey     string
	PublicKey     string
	MerchantCode  string
	APIURL        string
	WebhookSecret string
}

func (c TabbyConfig) IsConfigured() bool {
	return c.SecretKey != "" && c.MerchantCode != "" && c.WebhookSecret != "" && c.APIURL != ""
}

// CheckoutURLs are the redirect targets handed to the BNPL providers.
type CheckoutURLs struct {
	Success string
	Failure string
	Cancel  string
}

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string

	Stripe   StripeConfig
	Tamara   TamaraConfig
	Tabby    TabbyConfig
	Checkout CheckoutURLs
}

// LoadConfig reads .env (when present) and the process environment.
// Missing provider credentials are not an error: the provider is simply
// reported as not configured.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		AppPort:    getEnv("APP_PORT", "8080"),
		AppEnv:     getEnv("APP_ENV", "development"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_PAYMENT_TOPIC", "payments.status"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		Stripe: StripeConfig{
			SecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
			PublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
			WebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Tamara: TamaraConfig{
			APIToken:        os.Getenv("TAMARA_API_TOKEN"),
			APIURL:          getEnv("TAMARA_API_URL", defaultTamaraURL),
			NotificationKey: os.Getenv("TAMARA_NOTIFICATION_KEY"),
		},
		Tabby: TabbyConfig{
			SecretKey:     os.Getenv("TABBY_SECRET_KEY"),
			PublicKey:     os.Getenv("TABBY_PUBLIC_KEY"),
			MerchantCode:  os.Getenv("TABBY_MERCHANT_CODE"),
			APIURL:        getEnv("TABBY_API_URL", defaultTabbyURL),
			WebhookSecret: os.Getenv("TABBY_WEBHOOK_SECRET"),
		},
		Checkout: CheckoutURLs{
			Success: os.Getenv("CHECKOUT_SUCCESS_URL"),
			Failure: os.Getenv("CHECKOUT_FAILURE_URL"),
			Cancel:  os.Getenv("CHECKOUT_CANCEL_URL"),
		},
	}
}

// HasDatabase reports whether enough DB settings are present to connect.
func (c *Config) HasDatabase() bool {
	return c.DBHost != "" && c.DBName != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
