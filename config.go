package flaas

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/pelletier/go-toml"
)

const maxLimit = 100

var (
	ErrManagerURL = errors.New("manager url must be an absolute http(s) url")
	ErrLimit      = fmt.Errorf("limit must not exceed %d", maxLimit)
)

// Config is the optional file read by the CLI. Zero values leave the
// command defaults in place.
type Config struct {
	Manager ManagerConfig `toml:"manager"`
	Devices DevicesConfig `toml:"devices"`
}

type ManagerConfig struct {
	URL             string `toml:"url"`
	TLSVerification bool   `toml:"tls_verification"`
	Offset          uint64 `toml:"offset"`
	Limit           uint64 `toml:"limit"`
}

type DevicesConfig struct {
	// UsernamePrefix selects the devices enrolled by `devices assign` when
	// no device ids are given.
	UsernamePrefix string `toml:"username_prefix"`
}

func (c Config) Validate() error {
	if c.Manager.URL != "" {
		u, err := url.Parse(c.Manager.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrManagerURL, c.Manager.URL)
		}
	}
	if c.Manager.Limit > maxLimit {
		return ErrLimit
	}

	return nil
}

func LoadConfig(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
