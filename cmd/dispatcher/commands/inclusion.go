package commands

import (
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/client"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

// InclusionCmd fetches the attestation of a blob
var InclusionCmd = &cobra.Command{
	Use:   "inclusion <blob-id>",
	Short: "Print the inclusion attestation of a blob",
	Long:  `Fetch and verify the inclusion proof of <blob-id> and print the encoded attestation as hex, or "pending" if the backend cannot prove it yet.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		c, err := client.New(cmd.Context(), cfg, log, nil)
		if err != nil {
			return err
		}
		defer c.Close()

		data, err := c.GetInclusionData(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if data == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "pending")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(data.Data))
		return nil
	},
}
