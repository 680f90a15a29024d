package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort          string
	LowStockThreshold int
	Database          DatabaseConfig
	Redis             RedisConfig
	RabbitMQ          RabbitMQConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CartTTL  time.Duration
}

type RabbitMQConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	VHost      string
	Exchange   string
	RetryCount int
	RetryDelay time.Duration
}

func Load() *Config {
	lowStock, _ := strconv.Atoi(getEnvOrDefault("LOW_STOCK_THRESHOLD", "5"))
	redisDB, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	rabbitPort, _ := strconv.Atoi(getEnvOrDefault("RABBITMQ_PORT", "5672"))
	retryCount, _ := strconv.Atoi(getEnvOrDefault("RABBITMQ_RETRY_COUNT", "3"))

	return &Config{
		HTTPPort:          getEnvOrDefault("PORT", "8080"),
		LowStockThreshold: lowStock,
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("DB_NAME", "canteen_db"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       redisDB,
			CartTTL:  time.Hour * 24,
		},
		RabbitMQ: RabbitMQConfig{
			Host:       getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:       rabbitPort,
			Username:   getEnvOrDefault("RABBITMQ_USERNAME", "guest"),
			Password:   getEnvOrDefault("RABBITMQ_PASSWORD", "guest"),
			VHost:      getEnvOrDefault("RABBITMQ_VHOST", "/"),
			Exchange:   getEnvOrDefault("RABBITMQ_EXCHANGE", "menu.events"),
			RetryCount: retryCount,
			RetryDelay: time.Second * 5,
		},
	}
}

func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name,
	)
}

func (c RabbitMQConfig) ConnectionURL() string {
	vhost := c.VHost
	if vhost != "/" && !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.Username, c.Password, c.Host, c.Port, vhost)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
