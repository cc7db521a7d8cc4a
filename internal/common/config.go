// Package common provides shared utilities for CEDAR Lab applications.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds common configuration for all applications.
type Config struct {
	MadrigalURL        string
	UserFullName       string
	UserEmail          string
	UserAffiliation    string
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
	LogLevel           string
}

// Profile is the on-disk TOML representation of user settings.
// Madrigal asks data consumers to identify themselves on every download,
// so the three user fields are required for any remote operation.
type Profile struct {
	MadrigalURL string `toml:"madrigal_url"`
	FullName    string `toml:"user_fullname"`
	Email       string `toml:"user_email"`
	Affiliation string `toml:"user_affiliation"`
	DataDir     string `toml:"data_dir"`

	ClickHouse struct {
		Host     string `toml:"host"`
		Database string `toml:"database"`
		User     string `toml:"user"`
		Password string `toml:"password"`
	} `toml:"clickhouse"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MadrigalURL:        getEnv("MADRIGAL_URL", "http://cedar.openmadrigal.org"),
		UserFullName:       getEnv("MADRIGAL_USER_FULLNAME", ""),
		UserEmail:          getEnv("MADRIGAL_USER_EMAIL", ""),
		UserAffiliation:    getEnv("MADRIGAL_USER_AFFILIATION", ""),
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     9000,
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "madrigal"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            getEnv("CEDARLAB_DATA_DIR", "/var/lib/cedarlab"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// LoadProfile merges a TOML profile file into the environment-derived
// defaults. Values set in the file win over environment defaults.
func LoadProfile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	if p.MadrigalURL != "" {
		cfg.MadrigalURL = p.MadrigalURL
	}
	if p.FullName != "" {
		cfg.UserFullName = p.FullName
	}
	if p.Email != "" {
		cfg.UserEmail = p.Email
	}
	if p.Affiliation != "" {
		cfg.UserAffiliation = p.Affiliation
	}
	if p.DataDir != "" {
		cfg.DataDir = p.DataDir
	}
	if p.ClickHouse.Host != "" {
		cfg.ClickHouseHost = p.ClickHouse.Host
	}
	if p.ClickHouse.Database != "" {
		cfg.ClickHouseDatabase = p.ClickHouse.Database
	}
	if p.ClickHouse.User != "" {
		cfg.ClickHouseUser = p.ClickHouse.User
	}
	if p.ClickHouse.Password != "" {
		cfg.ClickHousePassword = p.ClickHouse.Password
	}

	return cfg, nil
}

// ValidateUser checks that the Madrigal user identification fields are set.
// The archive rejects anonymous downloads, so fail early with a clear message.
func (c *Config) ValidateUser() error {
	var missing []string
	if c.UserFullName == "" {
		missing = append(missing, "user_fullname")
	}
	if c.UserEmail == "" {
		missing = append(missing, "user_email")
	}
	if c.UserAffiliation == "" {
		missing = append(missing, "user_affiliation")
	}
	if len(missing) > 0 {
		return fmt.Errorf("madrigal user identification incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// InstrumentDataDir returns the data directory for one platform/name pair.
func (c *Config) InstrumentDataDir(platform, name string) string {
	return filepath.Join(c.DataDir, platform, name)
}

// IndicesDataDir returns the geophysical indices data directory path.
func (c *Config) IndicesDataDir() string {
	return filepath.Join(c.DataDir, "indices")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
