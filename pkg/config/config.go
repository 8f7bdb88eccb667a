// Package config loads runtime settings from an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the CLI and the web server
type Config struct {
	Width        int
	Height       int
	FocalLength  float64
	OutputDir    string
	OutputFormat string
	Scale        int
	LogLevel     slog.Level
	Port         int
	ScenesDir    string

	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	CDNURL      string
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Width:        640,
		Height:       480,
		FocalLength:  10000,
		OutputDir:    "output",
		OutputFormat: "png",
		Scale:        1,
		LogLevel:     slog.LevelInfo,
		Port:         8080,
		ScenesDir:    "scenes",
		S3Region:     "us-east-1",
	}
}

// PublishEnabled reports whether frames should be uploaded to S3
func (c Config) PublishEnabled() bool { return c.S3Bucket != "" }

// Load reads dir/.env if present, then the process environment. Variables
// already set in the environment win over the file.
func Load(dir string) (Config, error) {
	envPath := filepath.Join(dir, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read %s: %w", envPath, err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment over Default
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	cfg.Width = getInt("RAYTRACER_WIDTH", cfg.Width, &errs)
	cfg.Height = getInt("RAYTRACER_HEIGHT", cfg.Height, &errs)
	cfg.FocalLength = getFloat("RAYTRACER_FOCAL_LENGTH", cfg.FocalLength, &errs)
	cfg.OutputDir = getEnv("RAYTRACER_OUTPUT_DIR", cfg.OutputDir)
	cfg.OutputFormat = strings.ToLower(getEnv("RAYTRACER_OUTPUT_FORMAT", cfg.OutputFormat))
	cfg.Scale = getInt("RAYTRACER_SCALE", cfg.Scale, &errs)
	cfg.ScenesDir = getEnv("RAYTRACER_SCENES_DIR", cfg.ScenesDir)
	cfg.Port = getInt("PORT", cfg.Port, &errs)

	if level, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.CDNURL = strings.TrimSuffix(os.Getenv("CDN_URL"), "/")

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that sizes and scale are usable
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FocalLength <= 0 {
		return fmt.Errorf("focal length must be positive, got %g", c.FocalLength)
	}
	if c.Scale < 1 {
		return fmt.Errorf("scale must be at least 1, got %d", c.Scale)
	}
	return nil
}

// Helper to get environment variables with a default value.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, value))
		return fallback
	}
	return f
}
