package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the keyword/value connection string GORM's postgres driver
// expects.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the database URL form used by the migration runner.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// KafkaConfig holds broker addresses and the consumer group prefix.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port   string
	AppEnv string

	DB    DatabaseConfig
	Kafka KafkaConfig

	JWTSecret string

	// CancellationLeadTime is the minimum gap between a driver's cancel
	// request and the reservation start.
	CancellationLeadTime time.Duration

	// PricingRounding selects floor or nearest for fractional-hour totals.
	PricingRounding string

	// CompletionSweepSpec is the cron expression for the COMPLETED sweeper.
	CompletionSweepSpec string
}

// Load reads configuration from RESERVATION_-prefixed environment variables
// with sensible defaults for local development.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("RESERVATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reservations")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "parkshare.")
	v.SetDefault("CANCELLATION_LEAD_TIME", "2h")
	v.SetDefault("PRICING_ROUNDING", "floor")
	v.SetDefault("COMPLETION_SWEEP_SPEC", "*/5 * * * *")

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("RESERVATION_JWT_SECRET is required")
	}

	leadTime, err := time.ParseDuration(v.GetString("CANCELLATION_LEAD_TIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid RESERVATION_CANCELLATION_LEAD_TIME: %w", err)
	}
	if leadTime < 0 {
		return nil, fmt.Errorf("RESERVATION_CANCELLATION_LEAD_TIME cannot be negative")
	}

	return &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DB: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		JWTSecret:            jwtSecret,
		CancellationLeadTime: leadTime,
		PricingRounding:      v.GetString("PRICING_ROUNDING"),
		CompletionSweepSpec:  v.GetString("COMPLETION_SWEEP_SPEC"),
	}, nil
}
