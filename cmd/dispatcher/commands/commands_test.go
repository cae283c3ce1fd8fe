package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airchains-network/da-dispatcher/config"
	"github.com/airchains-network/da-dispatcher/db"
	"github.com/airchains-network/da-dispatcher/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, root *cobra.Command, stdin string, args ...string) (string, error) {
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitDispatchInclusion(t *testing.T) {
	root := &cobra.Command{Use: "da-dispatcher", SilenceUsage: true}
	AddGlobalFlags(root)
	root.AddCommand(InitCmd, DispatchCmd, InclusionCmd)

	home := t.TempDir()
	out, err := run(t, root, "", "init", "--home", home, "--da.max-retries", "2")
	require.NoError(t, err)
	require.Contains(t, out, "DA Backend: objectstore")

	cfg, err := config.LoadConfig(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.DA.MaxRetries)
	require.DirExists(t, cfg.ObjectStore.Path)

	_, err = run(t, root, "", "init", "--home", home)
	require.ErrorContains(t, err, "already exists")

	blobFile := filepath.Join(t.TempDir(), "blob.bin")
	require.NoError(t, os.WriteFile(blobFile, []byte("hello"), 0644))
	out, err = run(t, root, "", "dispatch", "--home", home, "--batch", "3", blobFile)
	require.NoError(t, err)
	blobID := strings.TrimSpace(out)
	require.Equal(t, "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq", blobID)

	out, err = run(t, root, "", "inclusion", "--home", home, blobID)
	require.NoError(t, err)
	require.Equal(t, "0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8", strings.TrimSpace(out))

	out, err = run(t, root, "from stdin", "dispatch", "--home", home, "-")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "bafkrei"))

	_, err = run(t, root, "", "inclusion", "--home", home, "0xdead:1")
	require.Error(t, err)
}

func TestDispatchWhileReceiptDBLocked(t *testing.T) {
	root := &cobra.Command{Use: "da-dispatcher", SilenceUsage: true}
	AddGlobalFlags(root)
	root.AddCommand(InitCmd, DispatchCmd)

	home := t.TempDir()
	_, err := run(t, root, "", "init", "--home", home)
	require.NoError(t, err)
	cfg, err := config.LoadConfig(filepath.Join(home, "config.toml"))
	require.NoError(t, err)

	// a running server keeps the receipt database open
	held, err := db.NewLevelDB(cfg.Database.ReceiptDBPath)
	require.NoError(t, err)

	out, err := run(t, root, "hello", "dispatch", "--home", home, "-")
	require.NoError(t, err)
	blobID := strings.TrimSpace(out)
	require.Equal(t, "bafkreibm6jg3ux5qumhcn2b3flc3tyu6dmlb4xa7u5bf44yegnrjhc4yeq", blobID)

	_, err = store.NewReceipts(held).Get(blobID)
	require.Error(t, err)
	require.NoError(t, held.Close())

	_, err = run(t, root, "hello", "dispatch", "--home", home, "-")
	require.NoError(t, err)
	receiptDB, err := db.NewLevelDB(cfg.Database.ReceiptDBPath)
	require.NoError(t, err)
	defer receiptDB.Close()
	receipt, err := store.NewReceipts(receiptDB).Get(blobID)
	require.NoError(t, err)
	require.Equal(t, 5, receipt.Size)
}

func TestLoadConfigRequiresInit(t *testing.T) {
	root := &cobra.Command{Use: "x"}
	AddGlobalFlags(root)
	require.NoError(t, root.PersistentFlags().Set("home", t.TempDir()))
	_, _, err := loadConfig(root)
	require.ErrorContains(t, err, "init")
}
