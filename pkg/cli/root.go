// pkg/cli/root.go
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bstardust/gphotos-amazon-transfer/internal/config"
	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/spf13/cobra"
)

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interruption signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	rootCmd := &cobra.Command{
		Use:   "gphotos-amazon-transfer",
		Short: "Transfer photos and albums from Google Photos to Amazon Photos",
		Long:  `A tool that moves media items and album structure from a Google Photos library to an Amazon Photos account, producing a JSON report with one record per item.`,
	}

	// Global flags
	config := config.New()
	rootCmd.PersistentFlags().StringVar(&config.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Add commands
	rootCmd.AddCommand(newTransferCommand(ctx, config))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("Error executing command: %v", err)
		os.Exit(1)
	}
}
