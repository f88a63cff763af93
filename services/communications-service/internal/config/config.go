package config

import (
	sharedcfg "github.com/Tanmoy095/LogiSynapse-escrow/shared/config"
)

type Config struct {
	sharedcfg.CommonConfig

	ConsumerGroup string `env:"COMMS_CONSUMER_GROUP" envDefault:"communications-group"`
	EmailQueue    string `env:"COMMS_EMAIL_QUEUE" envDefault:"email_jobs"`
	SMSQueue      string `env:"COMMS_SMS_QUEUE" envDefault:"sms_jobs"`
	Prefetch      int    `env:"COMMS_PREFETCH" envDefault:"10"`
	// Attempts per event before the consumer skips it; 0 retries until
	// shutdown.
	RetryAttempts int `env:"COMMS_RETRY_ATTEMPTS" envDefault:"3"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := sharedcfg.ParseEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
