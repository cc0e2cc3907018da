package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	errs = append(errs, c.Source.validate()...)
	errs = append(errs, c.Database.validate()...)
	errs = append(errs, c.Server.validate()...)
	errs = append(errs, c.History.validate()...)
	errs = append(errs, c.Rate.validate()...)
	errs = append(errs, c.Security.validate()...)
	errs = append(errs, c.Logging.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location returns the configured URL or path, whichever is set.
func (c *SourceConfig) Location() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Path
}

func (c *SourceConfig) validate() []string {
	var errs []string

	switch {
	case c.URL == "" && c.Path == "":
		errs = append(errs, "one of SOURCE_URL or SOURCE_PATH is required")
	case c.URL != "" && c.Path != "":
		errs = append(errs, "SOURCE_URL and SOURCE_PATH are mutually exclusive")
	case c.URL != "":
		u, err := url.Parse(c.URL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("SOURCE_URL (%q) is not a valid URL: %v", c.URL, err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Sprintf("SOURCE_URL (%q) must be an http or https URL", c.URL))
		case u.Host == "":
			errs = append(errs, fmt.Sprintf("SOURCE_URL (%q) has no host", c.URL))
		}
	}

	if c.MaxSize <= 0 {
		errs = append(errs, "SOURCE_MAX_SIZE must be positive")
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, "SOURCE_FETCH_TIMEOUT must be positive")
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, "SOURCE_REFRESH_INTERVAL must be non-negative (0 disables refresh)")
	}
	// Each refresh must be able to finish its fetch before the next one fires.
	if c.RefreshInterval > 0 && c.FetchTimeout > 0 && c.RefreshInterval <= c.FetchTimeout {
		errs = append(errs, fmt.Sprintf("SOURCE_REFRESH_INTERVAL (%s) must be longer than SOURCE_FETCH_TIMEOUT (%s)",
			c.RefreshInterval, c.FetchTimeout))
	}
	if c.MaxConcurrentLoads <= 0 {
		errs = append(errs, "SOURCE_MAX_CONCURRENT_LOADS must be positive")
	}
	if c.LoadWait <= 0 {
		errs = append(errs, "SOURCE_LOAD_WAIT must be positive")
	}
	return errs
}

// Database limits only matter when a database is configured.
func (c *DatabaseConfig) validate() []string {
	if !c.Enabled() {
		return nil
	}

	var errs []string
	// Keyword/value DSNs ("host=... dbname=...") are passed through to pgx.
	if strings.Contains(c.URL, "://") {
		if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, "DATABASE_URL must use the postgres:// or postgresql:// scheme")
		}
	}
	if c.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.MaxConns < c.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.MaxConns, c.MinConns))
	}
	return errs
}

func (c *ServerConfig) validate() []string {
	var errs []string
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Port))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, "SERVER_REQUEST_TIMEOUT must be positive")
	}
	if c.WriteTimeout > 0 && c.RequestTimeout > c.WriteTimeout {
		errs = append(errs, fmt.Sprintf("SERVER_REQUEST_TIMEOUT (%s) must not exceed SERVER_WRITE_TIMEOUT (%s)",
			c.RequestTimeout, c.WriteTimeout))
	}
	return errs
}

func (c *HistoryConfig) validate() []string {
	if c.MaxEntries <= 0 {
		return []string{"HISTORY_MAX_ENTRIES must be positive"}
	}
	return nil
}

func (c *RateLimitConfig) validate() []string {
	if c.Enabled && c.RequestsPerMinute <= 0 {
		return []string{"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled"}
	}
	return nil
}

func (c *SecurityConfig) validate() []string {
	var errs []string
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
	// Entries that parse as neither a prefix nor an address would be
	// silently ignored by the real-IP middleware.
	for _, entry := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(entry); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(entry); err == nil {
			continue
		}
		errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not a CIDR or IP address", entry))
	}
	return errs
}

func (c *LoggingConfig) validate() []string {
	var errs []string
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Format))
	}
	return errs
}
