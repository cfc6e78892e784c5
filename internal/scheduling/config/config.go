/**
 * @description
 * Configuration for the scheduling-service, loaded from environment
 * variables via Viper with an optional .env file for local development.
 */
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the scheduling-service.
type Config struct {
	ServerPort        string `mapstructure:"SERVER_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	RabbitMQURL       string `mapstructure:"RABBITMQ_URL"`
	RedisURL          string `mapstructure:"REDIS_URL"`
	RedisDedupePrefix string `mapstructure:"REDIS_DEDUPE_PREFIX"`
	MatchEventQueue   string `mapstructure:"MATCH_EVENT_QUEUE"`
	UserEventQueue    string `mapstructure:"USER_EVENT_QUEUE"`

	MatchmakingServiceURL string `mapstructure:"MATCHMAKING_SERVICE_URL"`
	InternalAPIKey        string `mapstructure:"INTERNAL_API_KEY"`

	MatchExpiryJobSchedule   string `mapstructure:"MATCH_EXPIRY_JOB_SCHEDULE"`
	AppointmentSweepSchedule string `mapstructure:"APPOINTMENT_SWEEP_SCHEDULE"`
	MatchExpiryMaxHours      int    `mapstructure:"MATCH_EXPIRY_MAX_HOURS"`
}

// LoadConfig reads configuration from environment variables from the given
// path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8084")
	viper.SetDefault("MATCH_EVENT_QUEUE", "scheduling_service.match_events")
	viper.SetDefault("USER_EVENT_QUEUE", "scheduling_service.user_events")
	viper.SetDefault("REDIS_DEDUPE_PREFIX", "skillswap:scheduling:processed_events")
	viper.SetDefault("MATCH_EXPIRY_JOB_SCHEDULE", "0 * * * *")
	viper.SetDefault("APPOINTMENT_SWEEP_SCHEDULE", "*/30 * * * *")
	viper.SetDefault("MATCH_EXPIRY_MAX_HOURS", 72)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_DEDUPE_PREFIX")
	_ = viper.BindEnv("MATCH_EVENT_QUEUE")
	_ = viper.BindEnv("USER_EVENT_QUEUE")
	_ = viper.BindEnv("MATCHMAKING_SERVICE_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "SCHEDULING_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("MATCH_EXPIRY_JOB_SCHEDULE")
	_ = viper.BindEnv("APPOINTMENT_SWEEP_SCHEDULE")
	_ = viper.BindEnv("MATCH_EXPIRY_MAX_HOURS")

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
	config.MatchmakingServiceURL = strings.TrimSpace(config.MatchmakingServiceURL)
	if config.MatchExpiryMaxHours <= 0 {
		config.MatchExpiryMaxHours = 72
	}
	return
}
