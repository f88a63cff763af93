// shared/config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// CommonConfig holds infrastructure details used by MULTIPLE services
// (escrow-service, settlement-orchestrator, communications-service).
type CommonConfig struct {
	//Database (PostgreSQL) config
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	//Kafka config
	KafkaTopic  string `env:"KAFKA_TOPIC" envDefault:"settlement.events"`
	KafkaBroker string `env:"KAFKA_BROKER"`
	//RabbitMQ config
	RabbitMQUser     string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQHost     string `env:"RABBITMQ_HOST" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	//Redis is optional. Empty address means in-process locking only.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	// Temporal frontend. "temporal:7233" is the docker-compose default.
	TemporalHostPort string `env:"TEMPORAL_HOST_PORT" envDefault:"temporal:7233"`

	LogMode string `env:"LOG_MODE" envDefault:"dev"`
}

// LoadCommonConfig returns the shared infrastructure config
func LoadCommonConfig() (*CommonConfig, error) {
	var cfg CommonConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads any env-tagged struct. Service configs embed CommonConfig and
// call this once.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// GetDBURL formats the config into a PostgreSQL connection string
func (c *CommonConfig) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// GetRabbitMQURL formats the config into a RabbitMQ connection string
func (c *CommonConfig) GetRabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}

// KafkaEnabled reports whether both broker and topic are configured.
func (c *CommonConfig) KafkaEnabled() bool {
	return c.KafkaBroker != "" && c.KafkaTopic != ""
}
