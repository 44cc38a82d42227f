package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/angelsolaorbaiceta/h2cli/internal/http2"
)

// LogLevel defines the minimum severity for logs.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// Config is the top-level configuration structure for the client.
type Config struct {
	Target   TargetConfig      `toml:"target"`
	TLS      TLSConfig         `toml:"tls"`
	Settings map[string]uint32 `toml:"settings,omitempty"`
	Logging  LoggingConfig     `toml:"logging"`
}

// TargetConfig names the server to connect to.
type TargetConfig struct {
	// URL is the target in any form accepted by util.ParseTarget: an https
	// URL, host:port, or a bare hostname (port 443).
	URL string `toml:"url"`
	// DialTimeout bounds the TCP+TLS establishment, e.g. "10s". Zero means
	// no bound. Frame reads after the transport is up are not bounded here.
	DialTimeout duration `toml:"dial_timeout,omitempty"`
}

// TLSConfig holds the transport security knobs.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate chain and hostname checks.
	InsecureSkipVerify bool `toml:"insecure_skip_verify,omitempty"`
	// ServerName overrides the SNI/verification name; defaults to the
	// target hostname.
	ServerName string `toml:"server_name,omitempty"`
	// RootCAFile points at a PEM bundle to trust instead of the system
	// roots. Useful against servers with private CAs.
	RootCAFile string `toml:"root_ca_file,omitempty"`
}

// LoggingConfig configures the client's logging.
type LoggingConfig struct {
	Level LogLevel `toml:"level,omitempty"`
	// Format is "console" or "json".
	Format string `toml:"format,omitempty"`
}

// duration wraps time.Duration so TOML files can say "10s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q must not be negative", string(text))
	}
	d.Duration = parsed
	return nil
}

// settingNames maps the canonical TOML keys of the [settings] table to their
// wire identifiers.
var settingNames = map[string]http2.SettingID{
	"header_table_size":      http2.SettingHeaderTableSize,
	"enable_push":            http2.SettingEnablePush,
	"max_concurrent_streams": http2.SettingMaxConcurrentStreams,
	"initial_window_size":    http2.SettingInitialWindowSize,
	"max_frame_size":         http2.SettingMaxFrameSize,
	"max_header_list_size":   http2.SettingMaxHeaderListSize,
}

// Default returns the configuration used when no file is supplied. The
// target is left empty; it usually comes from the command line.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			DialTimeout: duration{10 * time.Second},
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: "console",
		},
	}
}

// Load reads a TOML configuration file on top of the defaults and validates
// the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks for values no connection attempt could accept.
func (c *Config) Validate() error {
	for name := range c.Settings {
		if _, ok := settingNames[name]; !ok {
			return fmt.Errorf("unknown setting %q in [settings]", name)
		}
	}
	if v, ok := c.Settings["enable_push"]; ok && v > 1 {
		return fmt.Errorf("enable_push must be 0 or 1, got %d", v)
	}
	switch c.Logging.Level {
	case "", LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", c.Logging.Format)
	}
	return nil
}

// BuildTLSConfig turns the TLS section into a crypto/tls client
// configuration. The conn package completes it with the ALPN protocol list
// and the server name.
func (t TLSConfig) BuildTLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
		ServerName:         t.ServerName,
	}
	if t.RootCAFile != "" {
		pemBytes, err := os.ReadFile(t.RootCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read root CA file %s: %w", t.RootCAFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, fmt.Errorf("root CA file %s contains no usable certificates", t.RootCAFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// DialTimeout returns the configured transport establishment bound.
func (c *Config) DialTimeout() time.Duration {
	return c.Target.DialTimeout.Duration
}

// SettingsList builds the parameters the client advertises: the protocol
// defaults with any [settings] overrides applied, extra settings appended in
// identifier order after the defaults. A fresh slice is returned per call.
func (c *Config) SettingsList() []http2.Setting {
	settings := http2.DefaultSettings()

	overrides := make(map[http2.SettingID]uint32, len(c.Settings))
	for name, value := range c.Settings {
		if id, ok := settingNames[name]; ok {
			overrides[id] = value
		}
	}

	for i, s := range settings {
		if v, ok := overrides[s.ID]; ok {
			settings[i].Value = v
			delete(overrides, s.ID)
		}
	}
	for id := http2.SettingHeaderTableSize; id <= http2.SettingMaxHeaderListSize; id++ {
		if v, ok := overrides[id]; ok {
			settings = append(settings, http2.Setting{ID: id, Value: v})
		}
	}
	return settings
}
