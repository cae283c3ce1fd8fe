package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/airchains-network/da-dispatcher/da/client"
	"github.com/airchains-network/da-dispatcher/db"
	"github.com/airchains-network/da-dispatcher/server"
	"github.com/airchains-network/da-dispatcher/store"
	"github.com/spf13/cobra"
)

// ServeCmd runs the HTTP API
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dispatch HTTP API",
	Long: `Serve the dispatch HTTP API on general.listen_addr from ~/.da-dispatcher/config.toml.
Dispatch state changes are streamed to WebSocket clients on /v1/ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd)
	},
}

func serveCommand(cmd *cobra.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	receiptDB, err := db.NewLevelDB(cfg.Database.ReceiptDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize receipt database: %v", err)
	}
	defer receiptDB.Close()

	hub := server.NewHub(log)
	c, err := client.New(ctx, cfg, log, hub.Publish)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := server.New(c, store.NewReceipts(receiptDB), hub, log)
	if err := srv.Run(ctx, cfg.General.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("HTTP server failed: %v", err)
	}
	log.Info("Dispatcher stopped")
	return nil
}
