// Package runcfg provides the typed key/value configuration consumed by a
// benchmark run. Values come from a YAML file or an in-memory map; every
// accessor takes an explicit default so callers never depend on config-file
// completeness.
package runcfg

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"
)

// Config is a typed view over the run configuration. It is safe for
// concurrent readers; callers apply any Override calls before handing the
// Config to a run, and nothing mutates it afterwards.
type Config struct {
	v *viper.Viper
}

// New returns an empty configuration. Every accessor will fall back to its
// caller-provided default.
func New() *Config {
	return &Config{v: viper.New()}
}

// FromMap builds a configuration from an in-memory key/value map. Used by
// tests and by embedding harnesses that assemble configuration themselves.
func FromMap(values map[string]string) *Config {
	v := viper.New()
	for key, val := range values {
		v.Set(key, val)
	}
	return &Config{v: v}
}

// Load reads a configuration file (YAML, or anything else viper recognizes
// by extension) and returns the resulting Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// Override sets key to value, taking precedence over any file-provided
// value. Intended for command-line overrides applied before a run starts.
func (c *Config) Override(key, value string) {
	c.v.Set(key, value)
}

// String returns the value for key, or def when the key is absent.
func (c *Config) String(key, def string) string {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetString(key)
}

// Int returns the value for key parsed as an int, or def when absent.
func (c *Config) Int(key string, def int) int {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetInt(key)
}

// Bool returns the value for key parsed as a bool, or def when absent.
func (c *Config) Bool(key string, def bool) bool {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetBool(key)
}

// Float64 returns the value for key parsed as a float64, or def when absent.
func (c *Config) Float64(key string, def float64) float64 {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetFloat64(key)
}

// Duration returns the value for key parsed as a time.Duration, or def when
// absent.
func (c *Config) Duration(key string, def time.Duration) time.Duration {
	if !c.v.IsSet(key) {
		return def
	}
	return c.v.GetDuration(key)
}

// IsSet reports whether key was explicitly provided.
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// Keys returns every explicitly set key, sorted. Used for the startup log
// line that records the effective configuration.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	sort.Strings(keys)
	return keys
}
