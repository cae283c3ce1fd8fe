package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/airchains-network/da-dispatcher/da/avail"
	"github.com/airchains-network/da-dispatcher/da/celestia"
	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/da/near"
	"github.com/airchains-network/da-dispatcher/da/objectstore"
	"github.com/pelletier/go-toml"
)

// DirName is the directory under the user's home holding config and data.
const DirName = ".da-dispatcher"

// DefaultMaxRetries covers two minutes of polling at the default interval,
// enough for an Avail submission to finalize.
const DefaultMaxRetries = 24

// Config holds the application configuration
type Config struct {
	General     GeneralConfig      `toml:"general"`
	Database    DatabaseConfig     `toml:"database"`
	DA          DAConfig           `toml:"da"`
	Avail       avail.Config       `toml:"avail"`
	Celestia    celestia.Config    `toml:"celestia"`
	Near        near.Config        `toml:"near"`
	ObjectStore objectstore.Config `toml:"objectstore"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	LogLevel   string `toml:"log_level"`
	ListenAddr string `toml:"listen_addr"`
}

// DatabaseConfig holds database paths
type DatabaseConfig struct {
	ReceiptDBPath string `toml:"receipt_db_path"`
}

// DAConfig selects the backend and its retry policy
type DAConfig struct {
	Backend      string `toml:"backend"` // "avail", "celestia", "near" or "objectstore"
	Timeout      string `toml:"timeout"`
	MaxRetries   int    `toml:"max_retries"`
	PollInterval string `toml:"poll_interval"`
}

// TimeoutDuration parses da.timeout.
func (c DAConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("da.timeout", c.Timeout)
}

// PollIntervalDuration parses da.poll_interval.
func (c DAConfig) PollIntervalDuration() (time.Duration, error) {
	return parseDuration("da.poll_interval", c.PollInterval)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", daerr.ErrInvalidConfig, field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", daerr.ErrInvalidConfig, field)
	}
	return d, nil
}

// DefaultHome returns ~/.da-dispatcher
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %v", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultConfig returns the configuration written by init, rooted at dir
func DefaultConfig(dir string) Config {
	dataDir := filepath.Join(dir, "data")
	return Config{
		General: GeneralConfig{
			LogLevel:   "info",
			ListenAddr: ":8080",
		},
		Database: DatabaseConfig{
			ReceiptDBPath: filepath.Join(dataDir, "receipt_db"),
		},
		DA: DAConfig{
			Backend:      objectstore.Name,
			Timeout:      "30s",
			MaxRetries:   DefaultMaxRetries,
			PollInterval: "5s",
		},
		Near: near.Config{
			Network: "testnet",
		},
		ObjectStore: objectstore.Config{
			Path:        filepath.Join(dataDir, "object_db"),
			MaxBlobSize: objectstore.DefaultMaxBlobSize,
		},
	}
}

// Validate checks the DA section and the section of the selected backend
func (c Config) Validate() error {
	if _, err := c.DA.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.DA.PollIntervalDuration(); err != nil {
		return err
	}
	if c.DA.MaxRetries < 0 {
		return fmt.Errorf("%w: da.max_retries must not be negative", daerr.ErrInvalidConfig)
	}
	switch c.DA.Backend {
	case avail.Name:
		return c.Avail.Validate()
	case celestia.Name:
		return c.Celestia.Validate()
	case near.Name:
		return c.Near.Validate()
	case objectstore.Name:
		return c.ObjectStore.Validate()
	default:
		return fmt.Errorf("%w: unsupported da.backend %q", daerr.ErrInvalidConfig, c.DA.Backend)
	}
}

// LoadConfig reads from config.toml and returns Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}

	err = toml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	return cfg, nil
}

// Save writes the config as TOML. The file holds signing keys, so it is owner-only.
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}
