package main

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env"
)

type Config struct {
	Address            string `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseConnection string `env:"DATABASE_URI"`
	KafkaBrokers       string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	ChangeFeedTopic    string `env:"CHANGE_FEED_TOPIC" envDefault:"foodcourt.public.orders"`
	ChangeFeedGroup    string `env:"CHANGE_FEED_GROUP" envDefault:"vendor-dashboard"`
	RedisAddress       string `env:"REDIS_ADDRESS"`
	VendorUserID       string `env:"VENDOR_USER_ID"`
	OTLPEndpoint       string `env:"OTLP_ENDPOINT"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string")
	kafkaBrokers := flag.String("k", cfg.KafkaBrokers, "Comma-separated Kafka brokers")
	feedTopic := flag.String("t", cfg.ChangeFeedTopic, "Order table change feed topic")
	redisAddress := flag.String("r", cfg.RedisAddress, "Redis address for countdown deadlines (empty = in-memory)")
	vendorUserID := flag.String("u", cfg.VendorUserID, "User id of the vendor session")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.KafkaBrokers = *kafkaBrokers
	cfg.ChangeFeedTopic = *feedTopic
	cfg.RedisAddress = *redisAddress
	cfg.VendorUserID = *vendorUserID

	if cfg.DatabaseConnection == "" {
		return nil, fmt.Errorf("ENV DATABASE_URI must be set")
	}
	if cfg.VendorUserID == "" {
		return nil, fmt.Errorf("ENV VENDOR_USER_ID must be set")
	}

	return cfg, nil
}
