package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/internal/config"
	"github.com/bstardust/gphotos-amazon-transfer/internal/fshelper"
	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/internal/progress"
	"github.com/bstardust/gphotos-amazon-transfer/internal/report"
	"github.com/bstardust/gphotos-amazon-transfer/internal/transfer"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/amazonphotos"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/googlephotos"
	"github.com/spf13/cobra"
)

func newTransferCommand(ctx context.Context, cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Run a transfer from Google Photos to Amazon Photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd.Context(), cfg)
		},
	}

	// Transfer options
	cmd.Flags().IntVar(&cfg.Transfer.MaxPhotos, "max-photos", 0, "Maximum number of items to transfer (0 = no limit)")
	cmd.Flags().StringVar(&cfg.Transfer.DownloadDir, "download-dir", "", "Directory to stage downloads in")
	cmd.Flags().StringVar(&cfg.Transfer.ReportPath, "report-path", "", "Path to write the JSON transfer report")
	cmd.Flags().BoolVar(&cfg.Transfer.DryRun, "dry-run", false, "Simulate the transfer without downloading or uploading")
	cmd.Flags().BoolVar(&cfg.Transfer.SkipAlbums, "skip-albums", false, "Transfer items only, without mirroring albums")
	cmd.Flags().IntVar(&cfg.Transfer.BatchSize, "batch-size", 0, "Page size for source listing")
	cmd.Flags().DurationVar(&cfg.Transfer.Timeout, "timeout", 30*time.Minute, "Overall deadline for the run (0 = no deadline)")

	return cmd
}

func runTransfer(ctx context.Context, cfg *config.Config) error {
	logger.SetLevel(cfg.LogLevel)

	if err := cfg.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := fshelper.EnsureDir(cfg.Transfer.DownloadDir); err != nil {
		return err
	}

	if cfg.Transfer.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Transfer.Timeout)
		defer cancel()
	}

	// Authentication failures are fatal: no item is processed without both
	// sessions established.
	source := googlephotos.New(googlephotos.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURI:  cfg.Google.RedirectURI,
		TokenPath:    cfg.Google.TokenPath,
	})
	if err := source.Authenticate(ctx); err != nil {
		return err
	}

	dest := amazonphotos.New(amazonphotos.Config{
		ClientID:     cfg.Amazon.ClientID,
		ClientSecret: cfg.Amazon.ClientSecret,
		RefreshToken: cfg.Amazon.RefreshToken,
	})
	if err := dest.Authenticate(ctx); err != nil {
		return err
	}

	if cfg.Transfer.DryRun {
		logger.Info("DRY RUN MODE: no downloads or uploads will be performed")
	}
	if cfg.Transfer.SkipAlbums {
		logger.Info("Skipping album transfer as requested")
	}

	manager := transfer.New(source, dest, cfg.Transfer, progress.New())
	rep, runErr := manager.Run(ctx)

	// The report is written even when the run was cut short, so partial
	// progress is never lost.
	if rep != nil {
		if err := report.Write(cfg.Transfer.ReportPath, rep); err != nil {
			logger.Error("Failed to write transfer report: %v", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	return runErr
}
