package config

import "strings"

// HTTPConfig covers how the API is reached from outside. BaseURL is the public
// origin used in email links; only development builds may fall back to the
// request's Host header when it is unset.
type HTTPConfig struct {
	BaseURL     string   `env:"APP_BASE_URL"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=https://localhost:8000"`
}

// PublicURL returns BaseURL with exactly one trailing slash, or "" when unset.
func (h HTTPConfig) PublicURL() string {
	u := strings.TrimSpace(h.BaseURL)
	if u == "" {
		return ""
	}
	return strings.TrimRight(u, "/") + "/"
}
