// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ImageURLStored  = "stored"
	ImageURLPresign = "presign"
)

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT"    envDefault:"3000"`

	DBHost      string `env:"DB_HOST"      envDefault:"mongodb://localhost:27017"`
	DBName      string `env:"DB_NAME"      envDefault:"haze"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`

	JWTSecret          string `env:"JWT_SECRET"`
	SocketAuthRequired bool   `env:"SOCKET_AUTH_REQUIRED" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	CORSOrigins     string        `env:"CORS_ORIGINS"      envDefault:"*"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX"    envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	Matching Matching

	Images Images
}

// Matching holds the engine timings
type Matching struct {
	IntroduceTimeout      time.Duration `env:"INTRODUCE_TIMEOUT"       envDefault:"10s"`
	FaceRecognitionWindow time.Duration `env:"FACE_RECOGNITION_WINDOW" envDefault:"10s"`
	WebchatTimeout        time.Duration `env:"WEBCHAT_TIMEOUT"         envDefault:"10m"`
	RematchDelayFirst     time.Duration `env:"REMATCH_DELAY_FIRST"     envDefault:"1s"`
	RematchDelaySecond    time.Duration `env:"REMATCH_DELAY_SECOND"    envDefault:"3s"`
	LookupTimeout         time.Duration `env:"LOOKUP_TIMEOUT"          envDefault:"5s"`
}

// Images selects how profile picture URLs are produced
type Images struct {
	URLMode         string        `env:"IMAGE_URL_MODE"        envDefault:"stored"`
	Bucket          string        `env:"S3_BUCKET_NAME"`
	Region          string        `env:"AWS_REGION"            envDefault:"ap-northeast-2"`
	Endpoint        string        `env:"S3_ENDPOINT"`
	AccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool          `env:"S3_USE_PATH_STYLE"     envDefault:"false"`
	URLTTL          time.Duration `env:"IMAGE_URL_TTL"         envDefault:"15m"`
}

// Load reads .env.<APP_ENV> when present and then parses the environment.
// Variables already set in the process win over the file.
func Load() (Config, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}
	if err := godotenv.Load(".env." + appEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env.%s: %w", appEnv, err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	}
	switch c.Images.URLMode {
	case ImageURLStored:
	case ImageURLPresign:
		if c.Images.Bucket == "" {
			return errors.New("S3_BUCKET_NAME is required when IMAGE_URL_MODE=presign")
		}
	default:
		return fmt.Errorf("IMAGE_URL_MODE must be %q or %q, got %q", ImageURLStored, ImageURLPresign, c.Images.URLMode)
	}
	if c.SocketAuthRequired && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when SOCKET_AUTH_REQUIRED is set")
	}
	return c.Matching.validate()
}

func (m Matching) validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"INTRODUCE_TIMEOUT", m.IntroduceTimeout},
		{"FACE_RECOGNITION_WINDOW", m.FaceRecognitionWindow},
		{"WEBCHAT_TIMEOUT", m.WebchatTimeout},
		{"REMATCH_DELAY_FIRST", m.RematchDelayFirst},
		{"REMATCH_DELAY_SECOND", m.RematchDelaySecond},
		{"LOOKUP_TIMEOUT", m.LookupTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
