package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	POS       POSConfig
	Redis     RedisConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Checkout  CheckoutConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// POSConfig describes the remote point-of-sale API the menu and orders
// come from. The login identity is fixed test-environment material.
type POSConfig struct {
	BaseURL       string
	APIKey        string
	LoginEmail    string
	LoginPassword string
	Timeout       time.Duration
	ImageBaseURL  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SessionConfig controls the table-session tokens issued when a QR code
// is scanned.
type SessionConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	RequestsPerWindow int
	WindowSeconds     int
}

// CheckoutConfig tunes the simulated payment step.
type CheckoutConfig struct {
	PaymentDelay time.Duration
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("POS_BASE_URL", "https://api.happs.dev/api")
	viper.SetDefault("POS_TIMEOUT_SECONDS", 10)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 4)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("CHECKOUT_PAYMENT_DELAY_MS", 1500)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		POS: POSConfig{
			BaseURL:       viper.GetString("POS_BASE_URL"),
			APIKey:        viper.GetString("POS_API_KEY"),
			LoginEmail:    viper.GetString("POS_LOGIN_EMAIL"),
			LoginPassword: viper.GetString("POS_LOGIN_PASSWORD"),
			Timeout:       time.Duration(viper.GetInt("POS_TIMEOUT_SECONDS")) * time.Second,
			ImageBaseURL:  viper.GetString("POS_IMAGE_BASE_URL"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			Secret:      viper.GetString("SESSION_SECRET"),
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds:     viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Checkout: CheckoutConfig{
			PaymentDelay: time.Duration(viper.GetInt("CHECKOUT_PAYMENT_DELAY_MS")) * time.Millisecond,
		},
	}
}
