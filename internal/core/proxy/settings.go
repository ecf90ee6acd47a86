package proxy

import (
	"fmt"

	"courier-sync/internal/core/config"
)

// Settings contains proxy configuration for adapters.
type Settings struct {
	Enabled  bool
	Hostname string
	Port     int
	Username string
	Password string
}

// FromConfig builds Settings from the application configuration.
func FromConfig(cfg config.ProxyConfig) Settings {
	return Settings{
		Enabled:  cfg.Enabled,
		Hostname: cfg.Hostname,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

// HasProxy returns true if proxy is enabled and configured.
func (p Settings) HasProxy() bool {
	return p.Enabled && p.Hostname != "" && p.Port > 0
}

// HasCredentials returns true if the upstream proxy needs authentication.
func (p Settings) HasCredentials() bool {
	return p.HasProxy() && p.Username != "" && p.Password != ""
}

// HostPort returns the proxy host:port string (e.g., "http://geo.iproyal.com:12321").
func (p Settings) HostPort() string {
	if !p.HasProxy() {
		return ""
	}
	return fmt.Sprintf("http://%s:%d", p.Hostname, p.Port)
}

// FullURL returns the full proxy URL with credentials (for HTTP client).
func (p Settings) FullURL() string {
	if !p.HasProxy() {
		return ""
	}
	if p.Username != "" && p.Password != "" {
		return fmt.Sprintf("http://%s:%s@%s:%d", p.Username, p.Password, p.Hostname, p.Port)
	}
	return p.HostPort()
}
