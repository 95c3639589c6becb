// Package config loads service settings from build-time variables and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"valauth/internal/autherr"
)

// Build-time variables - inject via ldflags
// Example: go build -ldflags "-X valauth/internal/config.userAgent=RiotClient/61.0..."
var (
	userAgent string // -X valauth/internal/config.userAgent=...
)

const (
	DefaultListenAddr     = ":8080"
	DefaultRequestTimeout = 30 * time.Second
)

type Config struct {
	ListenAddr     string
	RequestTimeout time.Duration
	// Proxy is a proxy line in any format transport.ParseProxy accepts.
	Proxy string
	// ProxyFile lists one proxy per line; handshakes rotate across them.
	// It takes precedence over Proxy.
	ProxyFile    string
	CipherSuites []string
	UserAgent    string

	LogLevel  string
	LogFormat string

	AuthorizationURL string
	EntitlementsURL  string
	UserInfoURL      string
}

// Load reads the configuration. Unset keys keep their defaults; empty
// endpoint and user agent values mean "use the built-in one".
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:       getEnv("VALAUTH_LISTEN_ADDR", DefaultListenAddr),
		RequestTimeout:   DefaultRequestTimeout,
		Proxy:            strings.TrimSpace(os.Getenv("VALAUTH_PROXY")),
		ProxyFile:        strings.TrimSpace(os.Getenv("VALAUTH_PROXY_FILE")),
		CipherSuites:     splitList(os.Getenv("VALAUTH_CIPHER_SUITES")),
		UserAgent:        GetUserAgent(),
		LogLevel:         getEnv("VALAUTH_LOG_LEVEL", "info"),
		LogFormat:        getEnv("VALAUTH_LOG_FORMAT", "json"),
		AuthorizationURL: os.Getenv("VALAUTH_AUTH_URL"),
		EntitlementsURL:  os.Getenv("VALAUTH_ENTITLEMENTS_URL"),
		UserInfoURL:      os.Getenv("VALAUTH_USERINFO_URL"),
	}

	if raw := os.Getenv("VALAUTH_REQUEST_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, autherr.New(autherr.ConfigurationError, "config",
				fmt.Errorf("VALAUTH_REQUEST_TIMEOUT: %w", err))
		}
		if d <= 0 {
			return Config{}, autherr.New(autherr.ConfigurationError, "config",
				fmt.Errorf("VALAUTH_REQUEST_TIMEOUT must be positive, got %s", d))
		}
		cfg.RequestTimeout = d
	}

	for key, endpoint := range map[string]string{
		"VALAUTH_AUTH_URL":         cfg.AuthorizationURL,
		"VALAUTH_ENTITLEMENTS_URL": cfg.EntitlementsURL,
		"VALAUTH_USERINFO_URL":     cfg.UserInfoURL,
	} {
		if err := validateEndpoint(endpoint); err != nil {
			return Config{}, autherr.New(autherr.ConfigurationError, "config", fmt.Errorf("%s: %w", key, err))
		}
	}

	return cfg, nil
}

// validateEndpoint accepts an empty value or an absolute URL with a host.
func validateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}

// GetUserAgent returns the User-Agent override (build-time or env fallback).
func GetUserAgent() string {
	if userAgent != "" {
		return userAgent
	}
	return os.Getenv("VALAUTH_USER_AGENT")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
