package config

import (
	"fmt"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

const (
	LogSinkStdout = "stdout"
	LogSinkAPI    = "api"
)

var validate = validator.New()

type Config struct {
	ProjectID       string `env:"GOOGLE_CLOUD_PROJECT"`
	LogLevel        string `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn warning error"`
	LogSink         string `env:"LOG_SINK,default=stdout" validate:"oneof=stdout api"`
	LogName         string `env:"LOG_NAME,default=cuchat-notifications" validate:"required"`
	UsersCollection string `env:"USERS_COLLECTION,default=users" validate:"required"`
	ChatsCollection string `env:"CHATS_COLLECTION,default=chats" validate:"required"`
	FCMDryRun       bool   `env:"FCM_DRY_RUN,default=false"`
	Port            string `env:"PORT,default=8080" validate:"required,numeric"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
