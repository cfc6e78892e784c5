/**
 * @description
 * Configuration for the matchmaking-service, loaded from environment
 * variables via Viper with an optional .env file for local development.
 */
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the matchmaking-service.
type Config struct {
	ServerPort         string `mapstructure:"SERVER_PORT"`
	DatabaseURL        string `mapstructure:"DATABASE_URL"`
	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
	RedisURL           string `mapstructure:"REDIS_URL"`
	RedisDedupePrefix  string `mapstructure:"REDIS_DEDUPE_PREFIX"`
	UserEventQueue     string `mapstructure:"USER_EVENT_QUEUE"`
	InternalAPIKey     string `mapstructure:"INTERNAL_API_KEY"`
	MatchExpiryMaxDays int    `mapstructure:"MATCH_EXPIRY_MAX_DAYS"`
}

// LoadConfig reads configuration from environment variables from the given
// path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8082")
	viper.SetDefault("USER_EVENT_QUEUE", "matchmaking_service.user_events")
	viper.SetDefault("REDIS_DEDUPE_PREFIX", "skillswap:matchmaking:processed_events")
	viper.SetDefault("MATCH_EXPIRY_MAX_DAYS", 3)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_DEDUPE_PREFIX")
	_ = viper.BindEnv("USER_EVENT_QUEUE")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "MATCHMAKING_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("MATCH_EXPIRY_MAX_DAYS")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	if config.MatchExpiryMaxDays <= 0 {
		config.MatchExpiryMaxDays = 3
	}
	return
}
