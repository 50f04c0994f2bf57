package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI         string
	MongoDatabase    string
	RedisURL         string
	ServerPort       string
	JWTSecret        string
	NotifyServiceURL string
	ReviewServiceURL string
}

func LoadConfig() (*Config, error) {
	// .env is optional in deployed environments, real env vars win either way
	_ = godotenv.Load()

	db := os.Getenv("MONGO_DATABASE")
	if db == "" {
		db = "marketplace"
	}

	return &Config{
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDatabase:    db,
		RedisURL:         os.Getenv("REDIS_URL"),
		ServerPort:       os.Getenv("SERVER_PORT"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		NotifyServiceURL: os.Getenv("NOTIFY_SERVICE_URL"),
		ReviewServiceURL: os.Getenv("REVIEW_SERVICE_URL"),
	}, nil
}
