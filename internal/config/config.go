// Package config handles environment variable loading for ports, endpoints, poll budgets, etc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the application.
type Config struct {
	// HTTP server port for the controller
	HTTPPort int

	// Base URL of the remote device-testing service
	FarmURL string

	// API token used against the device-testing service
	FarmToken string

	// Default project handle, used for history reconciliation and as a
	// fallback when a trigger request omits its own project
	ProjectHandle string

	// Path to the packaged test bundle uploaded alongside each build
	TestBundlePath string

	// How long a fetched farm credential stays cached before refresh
	CredentialTTL time.Duration

	// Root directory (or bucket mount) of the object store holding
	// the report cache and the history document
	StoreRoot string

	// Public base URL for objects; when empty, file:// URLs are produced
	StoreBaseURL string

	// sha256 hex digest of the API key protecting the controller API;
	// empty disables authentication (local development)
	APIKeyHash string

	// Requests per second allowed per API client; 0 means unlimited
	RateLimit float64

	// Burst size for the rate limiter
	RateLimitBurst int

	// Key prefix for cached single-file reports
	ReportCachePrefix string

	// Optional database connection string; when set, history and
	// report-cache bookkeeping use PostgreSQL instead of the document store
	DatabaseURL string

	// Poll budgets per upload kind
	BinaryPollInterval   time.Duration
	BinaryMaxAttempts    int
	BundlePollInterval   time.Duration
	BundleMaxAttempts    int
	TestSpecPollInterval time.Duration
	TestSpecMaxAttempts  int

	// Poll cadence policy: "constant" or "exponential"
	PollPolicy string

	// How the sibling extractor is invoked: "local", "exec" or "docker"
	DelegateMode string

	// Path to the extractor binary (exec mode)
	ExtractorPath string

	// Image for the extractor container (docker mode)
	ExtractorImage string

	// OTLP collector address for traces; empty disables tracing
	CollectorAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	farmURL := os.Getenv("FARM_URL")
	if farmURL == "" {
		return nil, fmt.Errorf("FARM_URL is required")
	}

	farmToken := os.Getenv("FARM_TOKEN")
	if farmToken == "" {
		return nil, fmt.Errorf("FARM_TOKEN is required")
	}

	storeRoot := os.Getenv("STORE_ROOT")
	if storeRoot == "" {
		return nil, fmt.Errorf("STORE_ROOT is required")
	}

	project := os.Getenv("FARM_PROJECT")
	if project == "" {
		return nil, fmt.Errorf("FARM_PROJECT is required")
	}

	bundlePath := os.Getenv("TEST_BUNDLE_PATH")
	if bundlePath == "" {
		return nil, fmt.Errorf("TEST_BUNDLE_PATH is required")
	}

	rateLimit, err := floatEnv("RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	rateBurst, err := intEnv("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}

	port, err := intEnv("PORT", 6161)
	if err != nil {
		return nil, err
	}

	credTTL, err := durationEnv("CREDENTIAL_TTL", 50*time.Minute)
	if err != nil {
		return nil, err
	}

	binaryInterval, err := durationEnv("BINARY_POLL_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	binaryAttempts, err := intEnv("BINARY_MAX_ATTEMPTS", 30)
	if err != nil {
		return nil, err
	}

	bundleInterval, err := durationEnv("BUNDLE_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	bundleAttempts, err := intEnv("BUNDLE_MAX_ATTEMPTS", 30)
	if err != nil {
		return nil, err
	}

	specInterval, err := durationEnv("TESTSPEC_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	specAttempts, err := intEnv("TESTSPEC_MAX_ATTEMPTS", 15)
	if err != nil {
		return nil, err
	}

	pollPolicy := os.Getenv("POLL_POLICY")
	if pollPolicy == "" {
		pollPolicy = "constant"
	}
	if pollPolicy != "constant" && pollPolicy != "exponential" {
		return nil, fmt.Errorf("invalid POLL_POLICY %q", pollPolicy)
	}

	delegateMode := os.Getenv("DELEGATE_MODE")
	if delegateMode == "" {
		delegateMode = "local"
	}
	switch delegateMode {
	case "local", "exec", "docker":
	default:
		return nil, fmt.Errorf("invalid DELEGATE_MODE %q", delegateMode)
	}

	prefix := os.Getenv("REPORT_CACHE_PREFIX")
	if prefix == "" {
		prefix = "reports"
	}

	extractorPath := os.Getenv("EXTRACTOR_PATH")
	if extractorPath == "" {
		extractorPath = "farmgate-extractor"
	}

	return &Config{
		HTTPPort:             port,
		FarmURL:              farmURL,
		FarmToken:            farmToken,
		ProjectHandle:        project,
		TestBundlePath:       bundlePath,
		CredentialTTL:        credTTL,
		StoreRoot:            storeRoot,
		StoreBaseURL:         os.Getenv("STORE_BASE_URL"),
		APIKeyHash:           os.Getenv("API_KEY_HASH"),
		RateLimit:            rateLimit,
		RateLimitBurst:       rateBurst,
		ReportCachePrefix:    prefix,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		BinaryPollInterval:   binaryInterval,
		BinaryMaxAttempts:    binaryAttempts,
		BundlePollInterval:   bundleInterval,
		BundleMaxAttempts:    bundleAttempts,
		TestSpecPollInterval: specInterval,
		TestSpecMaxAttempts:  specAttempts,
		PollPolicy:           pollPolicy,
		DelegateMode:         delegateMode,
		ExtractorPath:        extractorPath,
		ExtractorImage:       os.Getenv("EXTRACTOR_IMAGE"),
		CollectorAddr:        os.Getenv("OTEL_COLLECTOR_ADDR"),
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func floatEnv(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
