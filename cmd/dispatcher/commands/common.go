package commands

import (
	"fmt"
	"path/filepath"

	"github.com/airchains-network/da-dispatcher/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// AddGlobalFlags registers flags shared by all commands
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("home", "", "Directory holding config.toml and data (default ~/.da-dispatcher)")
}

func homeDir(cmd *cobra.Command) (string, error) {
	if f := cmd.Flag("home"); f != nil && f.Value.String() != "" {
		return f.Value.String(), nil
	}
	return config.DefaultHome()
}

func configPath(home string) string {
	return filepath.Join(home, "config.toml")
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.Warnf("Unknown log level %q, using info", level)
	}
	log.SetLevel(lvl)
	return log
}

// loadConfig reads and validates the config under the home directory
func loadConfig(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	home, err := homeDir(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.LoadConfig(configPath(home))
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to load config: %v (run da-dispatcher init first)", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, newLogger(cfg.General.LogLevel), nil
}
