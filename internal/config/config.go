// Package config loads client and server configuration.
//
// Precedence, highest first: command-line flags, FILEBROWSER_* environment
// variables, the optional YAML config file, defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of all environment variables.
const EnvPrefix = "FILEBROWSER"

// ClientConfig configures the filebrowser CLI.
type ClientConfig struct {
	ServerURL     string        `mapstructure:"server_url" validate:"required,url"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gte=1,lte=10"`
	LogLevel      string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat     string        `mapstructure:"log_format" validate:"oneof=json console"`
	SessionFile   string        `mapstructure:"session_file" validate:"required"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	Output        string        `mapstructure:"output" validate:"oneof=table json"`
}

// ServerConfig configures the reference API server.
type ServerConfig struct {
	ListenAddr  string `mapstructure:"listen_addr" validate:"required"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `mapstructure:"log_format" validate:"oneof=json console"`

	// Storage backend: "local" serves RootDir, "s3" serves a bucket prefix.
	StorageBackend string `mapstructure:"storage_backend" validate:"oneof=local s3"`
	RootDir        string `mapstructure:"root_dir" validate:"required_if=StorageBackend local"`
	S3Endpoint     string `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3Bucket       string `mapstructure:"s3_bucket" validate:"required_if=StorageBackend s3"`
	S3Prefix       string `mapstructure:"s3_prefix"`
	S3AccessKey    string `mapstructure:"s3_access_key"`
	S3SecretKey    string `mapstructure:"s3_secret_key" validate:"required_with=S3AccessKey"`
	S3Region       string `mapstructure:"s3_region"`

	// Sessions
	SessionSecret      string        `mapstructure:"session_secret" validate:"omitempty,min=32"`
	CookieSecure       bool          `mapstructure:"cookie_secure"`
	InactivityTimeout  time.Duration `mapstructure:"inactivity_timeout" validate:"gt=0"`
	MaxSessionDuration time.Duration `mapstructure:"max_session_duration" validate:"gtefield=InactivityTimeout"`

	// Users are "name:hash" pairs; see auth.HashPassword.
	Users []string `mapstructure:"users" validate:"dive,contains=:"`

	// TLS (optional; if both set, the server uses HTTPS)
	TLSCertFile string `mapstructure:"tls_cert_file" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `mapstructure:"tls_key_file" validate:"required_with=TLSCertFile"`
}

// UseTLS reports whether both TLS files are configured.
func (c *ServerConfig) UseTLS() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// DefaultDir returns the directory holding the config and session files.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "filebrowser")
}

func clientDefaults(v *viper.Viper) {
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("session_file", filepath.Join(DefaultDir(), "session.json"))
	v.SetDefault("metrics_addr", "")
	v.SetDefault("output", "table")
}

func serverDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "localhost:8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("storage_backend", "local")
	v.SetDefault("root_dir", ".")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", true)
	v.SetDefault("inactivity_timeout", 10*time.Minute)
	v.SetDefault("max_session_duration", 8*time.Hour)
	v.SetDefault("users", []string{})
	v.SetDefault("tls_cert_file", "")
	v.SetDefault("tls_key_file", "")
}

// ClientFlags maps config keys to the CLI flags that override them.
var ClientFlags = map[string]string{
	"server_url":   "server",
	"timeout":      "timeout",
	"log_level":    "log-level",
	"session_file": "session-file",
	"output":       "output",
}

// ServerFlags maps config keys to the server flags that override them.
var ServerFlags = map[string]string{
	"listen_addr":     "listen",
	"metrics_addr":    "metrics-listen",
	"log_level":       "log-level",
	"storage_backend": "storage",
	"root_dir":        "root",
}

// LoadClient loads the CLI configuration. configFile may be empty to use
// DefaultDir()/client.yaml when it exists. flags may be nil.
func LoadClient(configFile string, flags *pflag.FlagSet) (*ClientConfig, error) {
	v := newViper(configFile, "client")
	clientDefaults(v)
	if err := load(v, flags, ClientFlags); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadServer loads the server configuration.
func LoadServer(configFile string, flags *pflag.FlagSet) (*ServerConfig, error) {
	v := newViper(configFile, "server")
	serverDefaults(v)
	if err := load(v, flags, ServerFlags); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Users = compact(cfg.Users)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func newViper(configFile, name string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName(name)
		v.SetConfigType("yaml")
	}
	return v
}

func load(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags == nil {
		return nil
	}
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its validate tags.
func Validate(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
