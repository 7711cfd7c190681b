package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultKiotvietBaseURL   = "https://id.kiotviet.vn"
	defaultKiotvietPublicAPI = "https://public.kiotapi.com"
	defaultPageSize          = 100
	defaultRequestDelayMs    = 250
	defaultEarliestDate      = "2022-01-01"
)

// KiotvietConfig carries everything needed to talk to the KiotViet API.
// Load it once at process start; a missing credential is a configuration
// error and must abort before any I/O.
type KiotvietConfig struct {
	BaseURL      string
	PublicAPIURL string
	ClientID     string
	ClientSecret string
	Retailer     string
	PageSize     int
	RequestDelay time.Duration
	EarliestDate time.Time
}

func LoadKiotvietConfig() (KiotvietConfig, error) {
	cfg := KiotvietConfig{
		BaseURL:      envOrDefault("KIOTVIET_BASE_URL", defaultKiotvietBaseURL),
		PublicAPIURL: envOrDefault("KIOTVIET_PUBLIC_API_URL", defaultKiotvietPublicAPI),
		ClientID:     strings.TrimSpace(os.Getenv("KIOTVIET_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(os.Getenv("KIOTVIET_CLIENT_SECRET")),
		Retailer:     strings.TrimSpace(os.Getenv("KIOTVIET_RETAILER")),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return KiotvietConfig{}, errors.New("KIOTVIET_CLIENT_ID and KIOTVIET_CLIENT_SECRET are required")
	}
	if cfg.Retailer == "" {
		return KiotvietConfig{}, errors.New("KIOTVIET_RETAILER is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.PublicAPIURL = strings.TrimRight(cfg.PublicAPIURL, "/")

	cfg.PageSize = intFromEnv("KIOTVIET_PAGE_SIZE", defaultPageSize)
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		cfg.PageSize = defaultPageSize
	}
	cfg.RequestDelay = time.Duration(intFromEnv("SYNC_REQUEST_DELAY_MS", defaultRequestDelayMs)) * time.Millisecond

	earliest := envOrDefault("KIOTVIET_EARLIEST_DATE", defaultEarliestDate)
	parsed, err := time.Parse("2006-01-02", earliest)
	if err != nil {
		return KiotvietConfig{}, fmt.Errorf("invalid KIOTVIET_EARLIEST_DATE %q: %w", earliest, err)
	}
	cfg.EarliestDate = parsed

	return cfg, nil
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
