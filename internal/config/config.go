package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	WhatsApp  WhatsAppConfig
	Dispatch  DispatchConfig
	QR        QRConfig
	Session   SessionConfig
	NATS      NATSConfig
	Bootstrap BootstrapConfig
	LogLevel  string
}

type ServerConfig struct {
	Address        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type WhatsAppConfig struct {
	BaseURL     string
	APIKey      string
	SessionID   string
	CountryCode string
}

type DispatchConfig struct {
	BatchSize int
	Delay     time.Duration
}

type QRConfig struct {
	PublicBaseURL string
	Size          int
	LogoPath      string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type NATSConfig struct {
	URL string
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func LoadAll() (*Config, error) {
	var errs []error

	need := func(key string) string {
		v, err := requireEnv(key)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	num := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:        getEnv("SERVER_ADDRESS", ":8080"),
			AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			URL:    need("DATABASE_URL"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:     getEnv("WHATSAPP_API_URL", "https://marce.ai"),
			APIKey:      need("WHATSAPP_API_KEY"),
			SessionID:   need("WHATSAPP_SESSION_ID"),
			CountryCode: getEnv("PHONE_COUNTRY_CODE", "57"),
		},
		Dispatch: DispatchConfig{
			BatchSize: num("DISPATCH_BATCH_SIZE", 10),
			Delay:     time.Duration(num("DISPATCH_DELAY_MS", 1000)) * time.Millisecond,
		},
		QR: QRConfig{
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			Size:          num("QR_SIZE", 512),
			LogoPath:      os.Getenv("LOGO_PATH"),
		},
		Session: SessionConfig{
			TTL:           time.Duration(num("SESSION_TTL_SECONDS", 43200)) * time.Second,
			SweepInterval: time.Duration(num("SESSION_SWEEP_SECONDS", 300)) * time.Second,
		},
		NATS: NATSConfig{
			URL: os.Getenv("NATS_URL"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Redis = redisCfg

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	var errs []error
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err)
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		errs = append(errs, err)
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, joinErrors(errs)
}

func validate(cfg *Config) error {
	var errs []error
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.Database.Driver))
	}
	if cfg.Dispatch.BatchSize <= 0 {
		errs = append(errs, errors.New("DISPATCH_BATCH_SIZE must be > 0"))
	}
	if cfg.Dispatch.Delay < 0 {
		errs = append(errs, errors.New("DISPATCH_DELAY_MS must be >= 0"))
	}
	if cfg.QR.Size < 128 {
		errs = append(errs, errors.New("QR_SIZE must be >= 128"))
	}
	if cfg.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_SECONDS must be > 0"))
	}
	if cfg.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_SECONDS must be > 0"))
	}
	if (cfg.Bootstrap.AdminEmail == "") != (cfg.Bootstrap.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return joinErrors(errs)
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
