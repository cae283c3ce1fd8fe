package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/airchains-network/da-dispatcher/da/client"
	"github.com/airchains-network/da-dispatcher/db"
	"github.com/airchains-network/da-dispatcher/store"
	"github.com/spf13/cobra"
)

// DispatchCmd submits one blob
var DispatchCmd = &cobra.Command{
	Use:   "dispatch <file>",
	Short: "Submit a blob and print its blob id",
	Long:  `Submit the contents of <file> ("-" for stdin) to the configured backend and wait until it is ordered.`,
	Args:  cobra.ExactArgs(1),
	RunE:  dispatchCommand,
}

func init() {
	DispatchCmd.Flags().Uint64("batch", 0, "Batch number recorded with the receipt")
}

func readBlob(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func dispatchCommand(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	batch, _ := cmd.Flags().GetUint64("batch")

	data, err := readBlob(cmd, args[0])
	if err != nil {
		return fmt.Errorf("failed to read blob: %v", err)
	}

	c, err := client.New(cmd.Context(), cfg, log, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Dispatch(cmd.Context(), batch, data)
	if err != nil {
		return err
	}

	receipt := store.Receipt{
		BlobID:      res.BlobID,
		Backend:     c.Name(),
		BatchNumber: batch,
		Size:        len(data),
		SubmittedAt: time.Now().UTC(),
	}
	if err := saveReceipt(cfg.Database.ReceiptDBPath, receipt); err != nil {
		log.Warnf("Blob %s dispatched but receipt not recorded: %v", res.BlobID, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.BlobID)
	return nil
}

// saveReceipt opens the receipt database only for the write. A running serve
// command holds its lock, in which case the receipt is skipped.
func saveReceipt(path string, receipt store.Receipt) error {
	receiptDB, err := db.NewLevelDB(path)
	if err != nil {
		return fmt.Errorf("failed to open receipt database: %v", err)
	}
	defer receiptDB.Close()
	return store.NewReceipts(receiptDB).Save(receipt)
}
