package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LeadInbox string `env:"LEAD_INBOX, default=leads@shogunlabs.local"`

	Mongo MongoConfig
	Redis RedisConfig
	Blob  BlobConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=reports"`
}

type RedisConfig struct {
	// Addr empty disables Redis; rate limiting falls back to process memory.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type BlobConfig struct {
	Bucket       string `env:"BLOB_BUCKET,    default=report-files"`
	Region       string `env:"BLOB_REGION,    default=us-east-1"`
	Endpoint     string `env:"BLOB_ENDPOINT"` // set for MinIO
	AccessKey    string `env:"BLOB_ACCESS_KEY"`
	SecretKey    string `env:"BLOB_SECRET_KEY"`
	UsePathStyle bool   `env:"BLOB_PATH_STYLE, default=false"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
