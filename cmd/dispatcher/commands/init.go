package commands

import (
	"fmt"
	"os"

	"github.com/airchains-network/da-dispatcher/config"
	"github.com/spf13/cobra"
)

// InitCmd represents the init command
var InitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the dispatcher",
	Long: `Initialize the dispatcher with a default configuration.
This command creates the home directory, the data directories and config.toml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd)
	},
}

func init() {
	InitCmd.Flags().String("da.backend", "objectstore", "DA backend (avail/celestia/near/objectstore)")
	InitCmd.Flags().Int("da.max-retries", config.DefaultMaxRetries, "Polls before giving up on finality or a proof")
	InitCmd.Flags().String("da.poll-interval", "5s", "Fixed delay between polls")
	InitCmd.Flags().String("listen-addr", ":8080", "HTTP API listen address")
	InitCmd.Flags().Bool("force", false, "Overwrite an existing config.toml")
}

func initCommand(cmd *cobra.Command) error {
	backend, _ := cmd.Flags().GetString("da.backend")
	maxRetries, _ := cmd.Flags().GetInt("da.max-retries")
	pollInterval, _ := cmd.Flags().GetString("da.poll-interval")
	listenAddr, _ := cmd.Flags().GetString("listen-addr")
	force, _ := cmd.Flags().GetBool("force")

	log := newLogger("info")

	home, err := homeDir(cmd)
	if err != nil {
		return err
	}
	path := configPath(home)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
	}

	cfg := config.DefaultConfig(home)
	cfg.DA.Backend = backend
	cfg.DA.MaxRetries = maxRetries
	cfg.DA.PollInterval = pollInterval
	cfg.General.ListenAddr = listenAddr
	if _, err := cfg.DA.PollIntervalDuration(); err != nil {
		return err
	}

	for _, dir := range []string{cfg.Database.ReceiptDBPath, cfg.ObjectStore.Path} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to create config file: %v", err)
	}
	log.Infof("Created config file at: %s", path)

	// Show configuration summary
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n=== Configuration Summary ===")
	fmt.Fprintf(out, "DA Backend: %s\n", cfg.DA.Backend)
	fmt.Fprintf(out, "Max Retries: %d\n", cfg.DA.MaxRetries)
	fmt.Fprintf(out, "Poll Interval: %s\n", cfg.DA.PollInterval)
	fmt.Fprintf(out, "Listen Address: %s\n", cfg.General.ListenAddr)
	fmt.Fprintf(out, "Config File: %s\n", path)

	if err := cfg.Validate(); err != nil {
		log.Warnf("Fill in the [%s] section of %s before dispatching: %v", cfg.DA.Backend, path, err)
	}
	return nil
}
