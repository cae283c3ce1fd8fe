package main

import (
	"os"

	"github.com/airchains-network/da-dispatcher/cmd/dispatcher/commands"
	"github.com/spf13/cobra"
)

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "da-dispatcher",
		Short: "Dispatch rollup blobs to data availability layers",
		Long: `Dispatch rollup blobs to a data availability layer and fetch inclusion attestations
that an on-chain verifier can check. Supported layers are Avail, Celestia, NEAR and a local object store.`,
		SilenceUsage: true,
	}
	commands.AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(commands.InitCmd)
	rootCmd.AddCommand(commands.DispatchCmd)
	rootCmd.AddCommand(commands.InclusionCmd)
	rootCmd.AddCommand(commands.ServeCmd)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
