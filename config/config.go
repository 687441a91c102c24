package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string
	APIBaseURL      string
	UpstreamTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI string
	MongoDB  string

	JWTSecret         string
	InvoiceSigningKey string
	SessionTTL        time.Duration

	GalleryDir string

	CORSAllowOrigins []string
}

// fileConfig is the optional YAML overlay named by MUSA_CONFIG. Keys mirror
// the environment variable names in lower case.
type fileConfig struct {
	Port              string   `yaml:"port"`
	APIBaseURL        string   `yaml:"api_base_url"`
	UpstreamTimeout   string   `yaml:"upstream_timeout"`
	RedisAddr         string   `yaml:"redis_addr"`
	RedisPassword     string   `yaml:"redis_password"`
	RedisDB           *int     `yaml:"redis_db"`
	MongoURI          string   `yaml:"mongo_uri"`
	MongoDB           string   `yaml:"mongo_db"`
	JWTSecret         string   `yaml:"jwt_secret"`
	InvoiceSigningKey string   `yaml:"invoice_signing_key"`
	SessionTTL        string   `yaml:"session_ttl"`
	GalleryDir        string   `yaml:"gallery_dir"`
	CORSAllowOrigins  []string `yaml:"cors_allow_origins"`
}

func defaults() fileConfig {
	db := 0
	return fileConfig{
		Port:             "4000",
		APIBaseURL:       "http://localhost:5000/api",
		UpstreamTimeout:  "10s",
		RedisAddr:        "localhost:6379",
		RedisDB:          &db,
		MongoURI:         "mongodb://localhost:27017",
		MongoDB:          "musa",
		SessionTTL:       "168h",
		GalleryDir:       "./static/gallery",
		CORSAllowOrigins: []string{"*"},
	}
}

// Load reads .env (if present), then the YAML file named by MUSA_CONFIG,
// then the environment. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}

	fc := defaults()
	if path := getenv("MUSA_CONFIG", ""); path != "" {
		if err := overlayFile(&fc, path); err != nil {
			return Config{}, err
		}
	}
	return fromSources(fc)
}

func overlayFile(fc *fileConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var over fileConfig
	if err := yaml.Unmarshal(raw, &over); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	merge(fc, over)
	return nil
}

func merge(dst *fileConfig, src fileConfig) {
	set := func(d *string, s string) {
		if strings.TrimSpace(s) != "" {
			*d = s
		}
	}
	set(&dst.Port, src.Port)
	set(&dst.APIBaseURL, src.APIBaseURL)
	set(&dst.UpstreamTimeout, src.UpstreamTimeout)
	set(&dst.RedisAddr, src.RedisAddr)
	set(&dst.RedisPassword, src.RedisPassword)
	set(&dst.MongoURI, src.MongoURI)
	set(&dst.MongoDB, src.MongoDB)
	set(&dst.JWTSecret, src.JWTSecret)
	set(&dst.InvoiceSigningKey, src.InvoiceSigningKey)
	set(&dst.SessionTTL, src.SessionTTL)
	set(&dst.GalleryDir, src.GalleryDir)
	if src.RedisDB != nil {
		dst.RedisDB = src.RedisDB
	}
	if len(src.CORSAllowOrigins) > 0 {
		dst.CORSAllowOrigins = src.CORSAllowOrigins
	}
}

func fromSources(fc fileConfig) (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", fc.Port),
		APIBaseURL:        strings.TrimRight(getenv("API_BASE_URL", fc.APIBaseURL), "/"),
		UpstreamTimeout:   parseDuration(getenv("UPSTREAM_TIMEOUT", fc.UpstreamTimeout), 10*time.Second),
		RedisAddr:         getenv("REDIS_ADDR", fc.RedisAddr),
		RedisPassword:     getenv("REDIS_PASSWORD", fc.RedisPassword),
		MongoURI:          getenv("MONGO_URI", fc.MongoURI),
		MongoDB:           getenv("MONGO_DB", fc.MongoDB),
		JWTSecret:         getenv("JWT_SECRET", fc.JWTSecret),
		InvoiceSigningKey: getenv("INVOICE_SIGNING_KEY", fc.InvoiceSigningKey),
		SessionTTL:        parseDuration(getenv("SESSION_TTL", fc.SessionTTL), 7*24*time.Hour),
		GalleryDir:        getenv("GALLERY_DIR", fc.GalleryDir),
		CORSAllowOrigins:  fc.CORSAllowOrigins,
	}

	if fc.RedisDB != nil {
		cfg.RedisDB = *fc.RedisDB
	}
	if v := getenv("REDIS_DB", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := getenv("CORS_ALLOW_ORIGINS", ""); v != "" {
		cfg.CORSAllowOrigins = splitCSV(v)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.InvoiceSigningKey == "" {
		cfg.InvoiceSigningKey = cfg.JWTSecret
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
