package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	TokenTTL        time.Duration
	FeedChannel     string
	SessionIdleTTL  time.Duration
	ReadOnly        bool
	AllowedOrigins  []string
	LogLevel        string
	LogFormat       string
	CategoriesFile  string
	DefaultCurrency string
	Catalog         Catalog
}

// Catalog lists the category labels offered by the entry form and the
// currencies totals can be displayed in.
type Catalog struct {
	Categories      []string `yaml:"categories" json:"categories"`
	DefaultCategory string   `yaml:"default_category" json:"default_category"`
	Currencies      []string `yaml:"currencies" json:"currencies"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Categories: []string{
			"Salaire 💰",
			"Loisirs 🎮",
			"Canal + 📺",
			"Netflix 🎬",
			"Spotify 🎵",
			"Nourriture 🍕",
			"Loyer 🏠",
			"Santé 🏥",
			"Transport 🚗",
			"Cadeau 🎁",
			"Autre 📦",
		},
		DefaultCategory: "Autre 📦",
		Currencies:      []string{"EUR", "USD", "XAF"},
	}
}

// Load reads the environment, after loading envFile (or .env when empty) if
// present.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		// Load .env file if present
		_ = godotenv.Load()
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		FeedChannel:     getEnv("FEED_CHANNEL", "ledger_changes"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		CategoriesFile:  getEnv("CATEGORIES_FILE", ""),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "EUR")),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "")),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ReadOnly, err = getBool("READ_ONLY", false); err != nil {
		return Config{}, err
	}

	cfg.Catalog = DefaultCatalog()
	if cfg.CategoriesFile != "" {
		if cfg.Catalog, err = LoadCatalog(cfg.CategoriesFile); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// LoadCatalog reads a YAML catalog. Missing fields keep their defaults.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read categories file: %w", err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse categories file: %w", err)
	}

	cat := DefaultCatalog()
	if len(file.Categories) > 0 {
		cat.Categories = file.Categories
		cat.DefaultCategory = file.Categories[len(file.Categories)-1]
	}
	if file.DefaultCategory != "" {
		cat.DefaultCategory = file.DefaultCategory
	}
	if len(file.Currencies) > 0 {
		cat.Currencies = make([]string, len(file.Currencies))
		for i, c := range file.Currencies {
			cat.Currencies[i] = strings.ToUpper(strings.TrimSpace(c))
		}
	}
	return cat, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
