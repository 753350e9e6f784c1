// Package config reads server settings from the environment and an
// optional YAML file of TPN defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"NeoNest/internal/calc/tpn"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	TokenKey          string
	DBPath            string
	AdminUser         string
	AdminPasswordHash string
	DefaultsFile      string
	ArchiveBucket     string
	ArchiveRegion     string
	ArchiveEndpoint   string
	TLSCert           string
	TLSKey            string
	Debug             bool

	// TPNDefaults is the factory prescription with DefaultsFile applied.
	TPNDefaults tpn.Inputs
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	c := Config{
		Addr:              get("NEONEST_ADDR", ":8080"),
		DatabaseURL:       getenv("DATABASE_URL"),
		TokenKey:          getenv("TOKEN_KEY"),
		DBPath:            get("NEONEST_DB_PATH", "data/neonest.db"),
		AdminUser:         get("ADMIN_USER", "admin"),
		AdminPasswordHash: getenv("ADMIN_PASSWORD_HASH"),
		DefaultsFile:      getenv("NEONEST_DEFAULTS"),
		ArchiveBucket:     getenv("NEONEST_ARCHIVE_BUCKET"),
		ArchiveRegion:     get("NEONEST_ARCHIVE_REGION", "us-east-1"),
		ArchiveEndpoint:   getenv("NEONEST_ARCHIVE_ENDPOINT"),
		TLSCert:           getenv("NEONEST_TLS_CERT"),
		TLSKey:            getenv("NEONEST_TLS_KEY"),
	}
	if v := getenv("NEONEST_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("NEONEST_DEBUG: %w", err)
		}
		c.Debug = debug
	}
	if c.TokenKey == "" {
		return Config{}, errors.New("TOKEN_KEY environment variable is not set")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return Config{}, errors.New("NEONEST_TLS_CERT and NEONEST_TLS_KEY must be set together")
	}

	c.TPNDefaults = tpn.Defaults()
	if c.DefaultsFile != "" {
		d, err := LoadDefaults(c.DefaultsFile)
		if err != nil {
			return Config{}, err
		}
		c.TPNDefaults = d
	}
	return c, nil
}

// LoadDefaults overlays the YAML file at path on the factory defaults and
// rejects a result the engine would not accept.
func LoadDefaults(path string) (tpn.Inputs, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return tpn.Inputs{}, fmt.Errorf("read defaults: %w", err)
	}
	d := tpn.Defaults()
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return tpn.Inputs{}, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	if _, err := tpn.Calculate(d); err != nil {
		return tpn.Inputs{}, fmt.Errorf("defaults %s: %w", path, err)
	}
	return d, nil
}
