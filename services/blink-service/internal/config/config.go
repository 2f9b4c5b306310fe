package config

import (
	"fmt"

	"github.com/fosterlabs/blink-engine/shared/env"
	"github.com/fosterlabs/blink-engine/shared/messaging"
	"github.com/fosterlabs/blink-engine/shared/mongo"
	"github.com/fosterlabs/blink-engine/shared/postgres"
	"github.com/fosterlabs/blink-engine/shared/redis"
)

// Config holds blink-service configuration loaded from environment.
type Config struct {
	ServiceName string
	Environment string
	HTTPPort    string
	PublicURL   string

	// Network selects which Solana cluster blinks target: "mainnet" or
	// "devnet". Everything derived from it (blockchain ids, storefront
	// links) follows this single switch.
	Network string

	SolanaRPCURL string
	DASURL       string

	// MerchPaymentAddress receives the platform share of every merch
	// split.
	MerchPaymentAddress string

	RateAPIURL string

	ShipStation ShipStationConfig
	Editions    EditionsConfig

	Postgres postgres.PostgresConfig
	Redis    redis.RedisConfig
	Mongo    mongo.MongoConfig
	RabbitMQ messaging.RabbitMQConfig
}

// ShipStationConfig configures the external fulfillment carrier.
type ShipStationConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// EditionsConfig points at the editions service that mints prints.
type EditionsConfig struct {
	BaseURL string
}

// LoadConfig reads service configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServiceName: env.GetString("SERVICE_NAME", "blink-service"),
		Environment: env.GetString("ENVIRONMENT", "development"),
		HTTPPort:    env.GetString("HTTP_PORT", "8086"),
		PublicURL:   env.GetString("PUBLIC_URL", "http://localhost:8086"),

		Network:      env.GetString("SOLANA_NETWORK", "devnet"),
		SolanaRPCURL: env.GetString("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
		DASURL:       env.GetString("DAS_RPC_URL", ""),

		MerchPaymentAddress: env.GetString("MERCH_PAYMENT_ADDRESS", ""),

		RateAPIURL: env.GetString("RATE_API_URL", "https://api.coingecko.com"),

		ShipStation: ShipStationConfig{
			BaseURL:   env.GetString("SHIPSTATION_API_URL", "https://ssapi.shipstation.com"),
			APIKey:    env.GetString("SHIPSTATION_API_KEY", ""),
			APISecret: env.GetString("SHIPSTATION_API_SECRET", ""),
		},
		Editions: EditionsConfig{
			BaseURL: env.GetString("EDITIONS_API_URL", ""),
		},

		Postgres: postgres.PostgresConfig{
			PostgresHost:     env.GetString("POSTGRES_HOST", "localhost"),
			PostgresPort:     env.GetInt("POSTGRES_PORT", 5432),
			PostgresUser:     env.GetString("POSTGRES_USER", "postgres"),
			PostgresPassword: env.GetString("POSTGRES_PASSWORD", "postgres"),
			PostgresDatabase: env.GetString("POSTGRES_DB", "blinks"),
			PostgresSSLMode:  env.GetString("POSTGRES_SSLMODE", "disable"),
		},
		Redis: redis.RedisConfig{
			RedisHost:     env.GetString("REDIS_HOST", "localhost"),
			RedisPort:     env.GetInt("REDIS_PORT", 6379),
			RedisPassword: env.GetString("REDIS_PASSWORD", ""),
			RedisDB:       env.GetInt("REDIS_DB", 0),
		},
		Mongo: mongo.MongoConfig{
			MongoURI:      env.GetString("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: env.GetString("MONGO_DATABASE", "catalog"),
		},
		RabbitMQ: messaging.RabbitMQConfig{
			RabbitMQHost:     env.GetString("RABBITMQ_HOST", "localhost"),
			RabbitMQPort:     env.GetInt("RABBITMQ_PORT", 5672),
			RabbitMQUser:     env.GetString("RABBITMQ_USER", "guest"),
			RabbitMQPassword: env.GetString("RABBITMQ_PASSWORD", "guest"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Network != "mainnet" && c.Network != "devnet" {
		return fmt.Errorf("invalid SOLANA_NETWORK %q, want mainnet or devnet", c.Network)
	}
	if c.SolanaRPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.MerchPaymentAddress == "" {
		return fmt.Errorf("MERCH_PAYMENT_ADDRESS is required")
	}
	return nil
}
