package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Settings is the process configuration read from the environment.
type Settings struct {
	Port            string        `validate:"required,numeric"`
	DefaultStandard string        `validate:"required,oneof=ifrs syscohada french_gaap us_gaap ohada"`
	CorsOrigins     []string      `validate:"dive,required"`
	MaxUploadBytes  int64         `validate:"gt=0"`
	RedisAddress    string        `validate:"omitempty,hostname_port"`
	CacheTTL        time.Duration `validate:"gt=0"`
	CacheSize       int           `validate:"gt=0"`
	LockTTL         time.Duration `validate:"gt=0"`
	Debug           bool
}

var validate = validator.New()

// Load reads .env when present, then the environment.
//
// Set via env:
// - PORT (8080), DEFAULT_STANDARD (syscohada), CORS_ORIGINS (*)
// - MAX_UPLOAD_MB (50), REDIS_ADDRESS (unset: in-process cache only)
// - CACHE_TTL (1h), CACHE_SIZE (256), LOCK_TTL (2m)
// - GIN_DEBUG (false)
func Load() (Settings, error) {
	_ = godotenv.Load()
	s := Settings{
		Port:            EnvString("PORT", "8080"),
		DefaultStandard: EnvString("DEFAULT_STANDARD", "syscohada"),
		CorsOrigins:     EnvList("CORS_ORIGINS", []string{"*"}),
		MaxUploadBytes:  int64(EnvInt("MAX_UPLOAD_MB", 50)) << 20,
		RedisAddress:    EnvString("REDIS_ADDRESS", ""),
		CacheTTL:        EnvDuration("CACHE_TTL", time.Hour),
		CacheSize:       EnvInt("CACHE_SIZE", 256),
		LockTTL:         EnvDuration("LOCK_TTL", 2*time.Minute),
		Debug:           EnvBool("GIN_DEBUG", false),
	}
	if err := validate.Struct(s); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
