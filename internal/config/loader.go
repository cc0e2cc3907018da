package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup, used by tests.
//
// Every malformed variable is reported, not just the first one, so a broken
// deployment can be fixed in a single pass.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	l := envLoader{getenv: getenv}
	l.load(reflect.ValueOf(cfg).Elem())
	if err := errors.Join(l.errs...); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envLoader fills tagged struct fields from the environment.
//
// Tags:
//
//	env:"NAME"       primary variable
//	envAlt:"NAME"    fallback variable when the primary is empty
//	default:"VALUE"  used when both are empty
type envLoader struct {
	getenv func(string) string
	errs   []error
}

func (l *envLoader) load(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			l.load(fv)
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := l.lookup(name, field.Tag.Get("envAlt"), field.Tag.Get("default"))
		if raw == "" {
			continue
		}
		if err := decodeValue(fv, raw); err != nil {
			l.errs = append(l.errs, fmt.Errorf("%s=%q: %w", name, raw, err))
		}
	}
}

func (l *envLoader) lookup(name, alt, def string) string {
	if v := l.getenv(name); v != "" {
		return v
	}
	if alt != "" {
		if v := l.getenv(alt); v != "" {
			return v
		}
	}
	return def
}

var durationType = reflect.TypeOf(time.Duration(0))

// decodeValue parses raw into the field's type.
func decodeValue(field reflect.Value, raw string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(raw)

	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(raw)))

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// splitList splits a comma-separated variable, dropping empty items.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and API keys are masked.
func (c *Config) String() string {
	db := "[DISABLED]"
	if c.Database.Enabled() {
		db = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Source: {Location: %q, MaxSize: %d, RefreshInterval: %s}, ",
		c.Source.Location(), c.Source.MaxSize, c.Source.RefreshInterval)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		db, c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "History: {MaxEntries: %d}, ", c.History.MaxEntries)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured, TrustedProxies: %d}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys), len(c.Security.TrustedProxies))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
