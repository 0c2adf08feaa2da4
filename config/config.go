package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Defaults DefaultsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	URL      string
}

type RabbitMQConfig struct {
	URL          string
	Exchange     string
	ExchangeType string
}

type DefaultsConfig struct {
	OrderPrefix string
	SystemActor string
}

var AppConfig *Config

func LoadConfig() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg(".env file not found, falling back to environment variables")
	}

	viper.AutomaticEnv()

	// PORT is what most hosting platforms inject.
	viper.BindEnv("SERVER_PORT", "PORT")
	viper.BindEnv("DATABASE_URL")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("RABBITMQ_EXCHANGE", "orders")
	viper.SetDefault("RABBITMQ_EXCHANGE_TYPE", "topic")
	viper.SetDefault("ORDER_PREFIX", "ORD")
	viper.SetDefault("SYSTEM_ACTOR", "admin")

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			URL:      viper.GetString("DATABASE_URL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:          viper.GetString("RABBITMQ_URL"),
			Exchange:     viper.GetString("RABBITMQ_EXCHANGE"),
			ExchangeType: viper.GetString("RABBITMQ_EXCHANGE_TYPE"),
		},
		Defaults: DefaultsConfig{
			OrderPrefix: viper.GetString("ORDER_PREFIX"),
			SystemActor: viper.GetString("SYSTEM_ACTOR"),
		},
	}

	log.Info().
		Str("port", AppConfig.Server.Port).
		Str("env", AppConfig.Server.Env).
		Str("db_host", AppConfig.Database.Host).
		Str("db_name", AppConfig.Database.Name).
		Bool("database_url_set", AppConfig.Database.URL != "").
		Bool("rabbitmq_configured", AppConfig.RabbitMQ.URL != "").
		Msg("Configuration loaded")
}
