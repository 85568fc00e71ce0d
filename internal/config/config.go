// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration, loaded from environment variables.
type Config struct {
	Port        string
	DatabaseDSN string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// External DICOM analysis tool.
	PythonExecutable string
	ExtractorScript  string
	ExtractTimeout   time.Duration
	MaxExtractOutput int64
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	cfg := &Config{
		Port:        GetEnv("PORT", "8080"),
		DatabaseDSN: GetEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=dicom_catalog port=5432 sslmode=disable"),

		MinioEndpoint:  GetEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    GetEnv("MINIO_BUCKET", "dicom-files"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",

		PythonExecutable: GetEnv("PYTHON_EXECUTABLE", "python3"),
		ExtractorScript:  GetEnv("DICOM_EXTRACTOR_SCRIPT", "scripts/process_dicom.py"),
	}

	timeoutSec, err := strconv.Atoi(GetEnv("EXTRACT_TIMEOUT_SECONDS", "60"))
	if err != nil || timeoutSec <= 0 {
		timeoutSec = 60
	}
	cfg.ExtractTimeout = time.Duration(timeoutSec) * time.Second

	maxOutput, err := strconv.ParseInt(GetEnv("EXTRACT_MAX_OUTPUT_BYTES", ""), 10, 64)
	if err != nil || maxOutput <= 0 {
		maxOutput = 50 << 20 // 50 MiB, pixel payloads included
	}
	cfg.MaxExtractOutput = maxOutput

	return cfg
}

// GetEnv retrieves an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
