/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the backoffice-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	IdentityJWKSURL      string `mapstructure:"IDENTITY_JWKS_URL"`
	IdentityAPIBaseURL   string `mapstructure:"IDENTITY_API_BASE_URL"`
	IdentityAPIKey       string `mapstructure:"IDENTITY_API_KEY"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	FallbackAdminID      string `mapstructure:"FALLBACK_ADMIN_ID"`
	FallbackAdminName    string `mapstructure:"FALLBACK_ADMIN_NAME"`

	WithdrawalSubmitRateLimitPerMinute int `mapstructure:"WITHDRAWAL_SUBMIT_RATE_LIMIT_PER_MINUTE"`
	MessageSendRateLimitPerMinute      int `mapstructure:"MESSAGE_SEND_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "backoffice:rate_limit")
	viper.SetDefault("FALLBACK_ADMIN_ID", "admin-support")
	viper.SetDefault("FALLBACK_ADMIN_NAME", "Investor Relations")
	viper.SetDefault("WITHDRAWAL_SUBMIT_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("MESSAGE_SEND_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("IDENTITY_JWKS_URL")
	_ = viper.BindEnv("IDENTITY_API_BASE_URL")
	_ = viper.BindEnv("IDENTITY_API_KEY")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "BACKOFFICE_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("FALLBACK_ADMIN_ID")
	_ = viper.BindEnv("FALLBACK_ADMIN_NAME")
	_ = viper.BindEnv("WITHDRAWAL_SUBMIT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("MESSAGE_SEND_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("BACKOFFICE_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "backoffice:rate_limit"
	}
	config.FallbackAdminID = strings.TrimSpace(config.FallbackAdminID)
	if config.FallbackAdminID == "" {
		config.FallbackAdminID = "admin-support"
	}
	if strings.TrimSpace(config.FallbackAdminName) == "" {
		config.FallbackAdminName = "Investor Relations"
	}

	if config.WithdrawalSubmitRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative withdrawal submit limit configured; disabling\" limit=%d", config.WithdrawalSubmitRateLimitPerMinute)
		config.WithdrawalSubmitRateLimitPerMinute = 0
	}
	if config.MessageSendRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative message send limit configured; disabling\" limit=%d", config.MessageSendRateLimitPerMinute)
		config.MessageSendRateLimitPerMinute = 0
	}

	return
}
