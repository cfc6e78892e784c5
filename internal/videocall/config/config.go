/**
 * @description
 * Configuration for the videocall-service, loaded from environment variables
 * via Viper with an optional .env file for local development.
 */
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the videocall-service.
type Config struct {
	ServerPort        string `mapstructure:"SERVER_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	RabbitMQURL       string `mapstructure:"RABBITMQ_URL"`
	RedisURL          string `mapstructure:"REDIS_URL"`
	RedisDedupePrefix string `mapstructure:"REDIS_DEDUPE_PREFIX"`
	MatchEventQueue   string `mapstructure:"MATCH_EVENT_QUEUE"`
	UserEventQueue    string `mapstructure:"USER_EVENT_QUEUE"`
}

// LoadConfig reads configuration from environment variables from the given
// path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8083")
	viper.SetDefault("MATCH_EVENT_QUEUE", "videocall_service.match_events")
	viper.SetDefault("USER_EVENT_QUEUE", "videocall_service.user_events")
	viper.SetDefault("REDIS_DEDUPE_PREFIX", "skillswap:videocall:processed_events")

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_DEDUPE_PREFIX")
	_ = viper.BindEnv("MATCH_EVENT_QUEUE")
	_ = viper.BindEnv("USER_EVENT_QUEUE")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	return
}
