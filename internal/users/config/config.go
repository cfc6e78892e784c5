/**
 * @description
 * Configuration for the users-service, loaded from environment variables via
 * Viper with an optional .env file for local development.
 */
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the users-service.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`
}

// LoadConfig reads configuration from environment variables from the given
// path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8081")

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "USERS_SERVICE_INTERNAL_API_KEY")

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
	return
}
