package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cartoonify/internal/filter"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	LogDirectory    string
	CameraDevice    int           // Indeks urządzenia kamery dla /webcam-feed
	StreamInterval  time.Duration // Odstęp między klatkami strumienia
	UploadDirectory string
	OutputDirectory string
	DatabasePath    string
	MaxUploadSize   int64 // Maksymalny rozmiar uploadu w bajtach
	VideoCodec      string
	ProgressEvery   int // Co ile klatek raportować postęp wideo
	AllowedOrigins  []string

	// Filter is fixed for the process lifetime and is not read from the environment.
	Filter filter.Params
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() *Config {
	// Brak pliku .env nie jest błędem
	_ = godotenv.Load()

	return &Config{
		Port:            getEnvAsInt("PORT", 5000),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CameraDevice:    getEnvAsInt("CAMERA_DEVICE", 0),
		StreamInterval:  time.Duration(getEnvAsInt("STREAM_INTERVAL_MS", 100)) * time.Millisecond,
		UploadDirectory: getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		OutputDirectory: getEnv("OUTPUT_DIR", filepath.Join(".", "output")),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "data", "cartoonify.db")),
		MaxUploadSize:   getEnvAsInt64("MAX_UPLOAD_MB", 200) << 20,
		VideoCodec:      getEnv("VIDEO_CODEC", "mp4v"),
		ProgressEvery:   getEnvAsInt("PROGRESS_EVERY", 10),
		AllowedOrigins:  getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		Filter:          filter.DefaultParams(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
