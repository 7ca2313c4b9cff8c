package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Cloudinary CloudinaryConfig
	Cache      CacheConfig
	Geocoding  GeocodingConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	URL      string
	LogLevel string
}

type JWTConfig struct {
	Secret            string
	ExpiryHours       int
	RefreshExpiryDays int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type CacheConfig struct {
	Size int
	TTL  time.Duration
}

type GeocodingConfig struct {
	Enabled   bool
	BaseURL   string
	UserAgent string
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DB_URL", ""),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
			ExpiryHours:       getEnvAsInt("JWT_EXPIRY_HOURS", 1),
			RefreshExpiryDays: getEnvAsInt("JWT_REFRESH_EXPIRY_DAYS", 7),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Cache: CacheConfig{
			Size: getEnvAsInt("LISTING_CACHE_SIZE", 128),
			TTL:  time.Duration(getEnvAsInt("LISTING_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Geocoding: GeocodingConfig{
			Enabled:   getEnvAsBool("GEOCODING_ENABLED", false),
			BaseURL:   getEnv("GEOCODING_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent: getEnv("GEOCODING_USER_AGENT", "rental-platform-server"),
		},
	}
}

// CloudinaryURL returns the cloudinary:// connection URL, or "" when not configured.
func (c CloudinaryConfig) CloudinaryURL() string {
	if c.CloudName == "" || c.APIKey == "" || c.APISecret == "" {
		return ""
	}
	return "cloudinary://" + c.APIKey + ":" + c.APISecret + "@" + c.CloudName
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
