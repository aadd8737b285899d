package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort string
	DataDir string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool

	// RedisAddr enables the live map channel when set.
	RedisAddr string

	// Sampling settings for the location channels
	SampleMinInterval time.Duration // minimum time between delivered fixes
	SampleMinDistance float64       // minimum movement in meters between delivered fixes
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	minioSSL := false
	if sslEnv := os.Getenv("MINIO_SSL"); sslEnv != "" {
		val, err := strconv.ParseBool(sslEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}

	minInterval := time.Second // default matches the device sampling cadence
	if intervalEnv := os.Getenv("SAMPLE_MIN_INTERVAL_MS"); intervalEnv != "" {
		val, err := strconv.Atoi(intervalEnv)
		if err != nil || val < 0 {
			return nil, fmt.Errorf("invalid SAMPLE_MIN_INTERVAL_MS value: %q", intervalEnv)
		}
		minInterval = time.Duration(val) * time.Millisecond
	}

	minDistance := 5.0 // meters
	if distanceEnv := os.Getenv("SAMPLE_MIN_DISTANCE_M"); distanceEnv != "" {
		val, err := strconv.ParseFloat(distanceEnv, 64)
		if err != nil || val < 0 {
			return nil, fmt.Errorf("invalid SAMPLE_MIN_DISTANCE_M value: %q", distanceEnv)
		}
		minDistance = val
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data/routes"
	}

	cfg := &Config{
		AppPort:        os.Getenv("TRACKER_PORT"),
		DataDir:        dataDir,
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioSSL:       minioSSL,
		RedisAddr:      os.Getenv("REDIS_ADDR"),

		SampleMinInterval: minInterval,
		SampleMinDistance: minDistance,
	}

	// Basic validation for required fields
	if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
		return nil, fmt.Errorf("media storage configuration is incomplete")
	}
	return cfg, nil
}
