package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

const (
	defaultListenAddr     = ":9090"
	defaultAllowedOrigin  = "http://localhost:8000"
	defaultRequestTimeout = 3 * time.Second
	defaultHistoryLimit   = 20
	defaultNetworkChainID = uint64(betflow.NetworkArbitrumOne)
)

// Config aggregates runtime settings for the HTTP façade.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	AdminToken     string
	NetworkChainID uint64
	RequestTimeout time.Duration
	HistoryLimit   int
}

// Validate fills defaults and ensures the configuration is usable.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.NetworkChainID == 0 {
		cfg.NetworkChainID = defaultNetworkChainID
	}
	if strings.TrimSpace(cfg.AdminToken) == "" {
		return fmt.Errorf("admin token is required")
	}
	return nil
}

// Network returns the configured chain as a typed network identifier.
func (cfg Config) Network() betflow.Network {
	return betflow.Network(cfg.NetworkChainID)
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
