// Package config loads the server configuration from a YAML, TOML or
// JSON file, applies environment variable overrides and validates the
// result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	// Listen is the TCP bind address for client connections.
	Listen string `yaml:"listen" toml:"listen" json:"listen" env:"IRCSERV_LISTEN" validate:"required"`

	// DataDir is where state snapshots (passwd.json, profile.json,
	// chan.json) are kept.
	DataDir string `yaml:"data_dir" toml:"data_dir" json:"data_dir" env:"IRCSERV_DATA_DIR" validate:"required"`

	// HideIPs replaces client addresses in prefixes with an opaque
	// per-connection token.
	HideIPs bool `yaml:"hide_ips" toml:"hide_ips" json:"hide_ips" env:"IRCSERV_HIDE_IPS"`

	// EnableAuthServ gates the command set behind nickname
	// registration/authentication.
	EnableAuthServ bool `yaml:"enable_authserv" toml:"enable_authserv" json:"enable_authserv" env:"IRCSERV_ENABLE_AUTHSERV"`

	LogToFile          bool   `yaml:"log_to_file" toml:"log_to_file" json:"log_to_file" env:"IRCSERV_LOG_TO_FILE"`
	LogFilePath        string `yaml:"log_file_path" toml:"log_file_path" json:"log_file_path" env:"IRCSERV_LOG_FILE_PATH"`
	LogFileEOL         string `yaml:"log_file_eol" toml:"log_file_eol" json:"log_file_eol" env:"IRCSERV_LOG_FILE_EOL"`
	LogChannelMessages bool   `yaml:"log_channel_messages" toml:"log_channel_messages" json:"log_channel_messages" env:"IRCSERV_LOG_CHANNEL_MESSAGES"`
	LogDirectMessages  bool   `yaml:"log_direct_messages" toml:"log_direct_messages" json:"log_direct_messages" env:"IRCSERV_LOG_DIRECT_MESSAGES"`

	// MOTD may contain embedded newlines; each line is sent as its own
	// MOTD reply.
	MOTD string `yaml:"motd" toml:"motd" json:"motd" env:"IRCSERV_MOTD"`

	// AutoJoinChannel, when set, is joined by every identity on
	// connect if the channel exists.
	AutoJoinChannel string `yaml:"auto_join_channel" toml:"auto_join_channel" json:"auto_join_channel" env:"IRCSERV_AUTO_JOIN_CHANNEL"`

	// Admin is the optional HTTP status/metrics API.
	Admin struct {
		Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCSERV_ADMIN_ENABLED"`
		Listen  string `yaml:"listen" toml:"listen" json:"listen" env:"IRCSERV_ADMIN_LISTEN" validate:"required_if=Enabled true"`
	} `yaml:"admin" toml:"admin" json:"admin"`

	// Source the configuration was loaded from, if any.
	Source string `yaml:"-" toml:"-" json:"-"`
}

// Default returns the built-in defaults.
func Default() *Config {
	cfg := &Config{
		Listen:             ":6667",
		DataDir:            ".",
		HideIPs:            true,
		EnableAuthServ:     true,
		LogToFile:          true,
		LogFileEOL:         "\r\n",
		LogChannelMessages: true,
		LogDirectMessages:  true,
		MOTD:               "Welcome to an unnamed IRC server. Admins can change this message in config.json.",
	}
	return cfg
}

// Load reads configuration from the given file, applies environment
// overrides and validates it. The format is chosen by the file
// extension, defaulting to YAML.
func Load(source string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFromFile(source); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrCreate behaves like Load but, when the file does not exist,
// writes the defaults to it (JSON) and returns them.
func LoadOrCreate(source string) (*Config, error) {
	if _, err := os.Stat(source); os.IsNotExist(err) {
		cfg := Default()
		cfg.Source = source
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding default config: %w", err)
		}
		if err := os.WriteFile(source, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(source)
}

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) loadFromFile(source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(source, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// applyEnvOverrides applies environment variable overrides to fields
// carrying an env tag.
func applyEnvOverrides(cfg *Config) {
	applyEnvRecursive(reflect.ValueOf(cfg).Elem())
}

func applyEnvRecursive(v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		if tag := field.Tag.Get("env"); tag != "" {
			if value, ok := os.LookupEnv(tag); ok {
				setFieldFromEnv(v.Field(i), value)
			}
		} else if field.Type.Kind() == reflect.Struct {
			applyEnvRecursive(v.Field(i))
		}
	}
}

func setFieldFromEnv(field reflect.Value, value string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Bool:
		s := strings.ToLower(value)
		field.SetBool(s == "true" || s == "1" || s == "yes" || s == "y")
	}
}
