package transfer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/internal/config"
	"github.com/bstardust/gphotos-amazon-transfer/internal/exif"
	"github.com/bstardust/gphotos-amazon-transfer/internal/fshelper"
	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/internal/progress"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/amazonphotos"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/googlephotos"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/models"
)

const defaultBatchSize = 50

// Manager drives a single transfer run end to end: album mirroring, item
// enumeration, download/upload per item, and report aggregation. Processing
// is deliberately sequential; items are handled one at a time in enumeration
// order.
type Manager struct {
	source   googlephotos.Interface
	dest     amazonphotos.Interface
	cfg      config.TransferConfig
	retry    RetryConfig
	progress *progress.Reporter

	albumMapping map[string]string   // source album id -> destination album id
	albumTitles  map[string]string   // source album id -> display title
	membership   map[string][]string // media item id -> source album ids
}

// New creates a Manager. The clients must already be authenticated.
func New(source googlephotos.Interface, dest amazonphotos.Interface, cfg config.TransferConfig, reporter *progress.Reporter) *Manager {
	return &Manager{
		source:       source,
		dest:         dest,
		cfg:          cfg,
		retry:        DefaultRetryConfig(),
		progress:     reporter,
		albumMapping: make(map[string]string),
		albumTitles:  make(map[string]string),
		membership:   make(map[string][]string),
	}
}

// SetRetryConfig overrides the retry policy. Tests inject a no-op sleep so
// retries run without wall-clock waits.
func (m *Manager) SetRetryConfig(cfg RetryConfig) {
	m.retry = cfg
}

// Run executes the transfer and returns the completed report. Per-item errors
// are captured in the report and never escape; only context cancellation
// propagates, alongside the records accumulated up to that point.
func (m *Manager) Run(ctx context.Context) (*models.TransferReport, error) {
	rep := models.NewTransferReport()
	m.progress.Start()

	if !m.cfg.SkipAlbums {
		if err := m.mirrorAlbums(ctx, rep); err != nil {
			rep.Finalize()
			return rep, err
		}
	}

	if err := m.transferItems(ctx, rep); err != nil {
		rep.Finalize()
		return rep, err
	}

	rep.Finalize()
	m.progress.Finish()
	logger.Info("%s", rep.Summary)
	return rep, nil
}

// mirrorAlbums creates (or reuses) a destination album for every source album
// and builds the item membership index used for linking later. A failure on
// one album is recorded and does not abort the run.
func (m *Manager) mirrorAlbums(ctx context.Context, rep *models.TransferReport) error {
	albums, err := m.source.ListAlbums(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("Failed to list source albums, continuing without album transfer: %v", err)
		return nil
	}

	logger.Info("Found %d albums in the source library", len(albums))

	for _, album := range albums {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rec := models.AlbumRecord{SourceID: album.ID, Title: album.Title}
		m.albumTitles[album.ID] = album.Title

		if m.cfg.DryRun {
			logger.Info("[DRY RUN] Would create album %q", album.Title)
			rec.Status = models.StatusSucceeded
			rec.DestinationID = "dry-run-album-" + album.ID
			m.albumMapping[album.ID] = rec.DestinationID
			rep.AddAlbumRecord(rec)
			continue
		}

		var destID string
		err := withRetry(ctx, m.retry, fmt.Sprintf("create album %q", album.Title), func() error {
			var cerr error
			destID, cerr = m.dest.CreateAlbum(ctx, album.Title)
			return cerr
		})
		if err != nil {
			logger.Error("Failed to create album %q: %v", album.Title, err)
			rec.Status = models.StatusFailed
			rec.Error = err.Error()
		} else {
			rec.Status = models.StatusSucceeded
			rec.DestinationID = destID
			m.albumMapping[album.ID] = destID
		}
		rep.AddAlbumRecord(rec)
	}

	if m.cfg.DryRun {
		return nil
	}
	return m.indexAlbumMembership(ctx)
}

// indexAlbumMembership records which source albums each media item belongs
// to, so items can be linked right after their upload succeeds.
func (m *Manager) indexAlbumMembership(ctx context.Context) error {
	for albumID := range m.albumMapping {
		pageToken := ""
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			items, next, err := m.source.ListMediaItems(ctx, m.cfg.BatchSize, pageToken, albumID)
			if err != nil {
				logger.Warn("Failed to list items of album %q: %v", m.albumTitles[albumID], err)
				break
			}
			for _, item := range items {
				m.membership[item.ID] = append(m.membership[item.ID], albumID)
			}
			if next == "" {
				break
			}
			pageToken = next
		}
	}
	return nil
}

// transferItems enumerates the source library page by page and moves each
// item, honoring the MaxPhotos cap across the whole enumeration.
func (m *Manager) transferItems(ctx context.Context, rep *models.TransferReport) error {
	pageToken := ""
	processed := 0
	quotaExhausted := false

	for {
		if m.cfg.MaxPhotos > 0 && processed >= m.cfg.MaxPhotos {
			logger.Info("Reached transfer cap of %d items", m.cfg.MaxPhotos)
			break
		}

		pageSize := m.cfg.BatchSize
		if pageSize <= 0 {
			pageSize = defaultBatchSize
		}
		if m.cfg.MaxPhotos > 0 {
			if remaining := m.cfg.MaxPhotos - processed; remaining < pageSize {
				pageSize = remaining
			}
		}

		var items []models.MediaItem
		var next string
		err := withRetry(ctx, m.retry, "list media items", func() error {
			var lerr error
			items, next, lerr = m.source.ListMediaItems(ctx, pageSize, pageToken, "")
			return lerr
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to list media items, stopping enumeration: %v", err)
			break
		}
		if len(items) == 0 {
			logger.Info("No more media items to process")
			break
		}

		for _, item := range items {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if m.cfg.MaxPhotos > 0 && processed >= m.cfg.MaxPhotos {
				break
			}

			if quotaExhausted {
				rep.AddRecord(models.TransferRecord{
					SourceID: item.ID,
					Filename: item.Filename,
					Status:   models.StatusSkipped,
					Error:    "account storage quota exhausted",
				})
				m.progress.Skip(item.Filename)
				processed++
				continue
			}

			rec, accountQuota := m.transferItem(ctx, item)
			rep.AddRecord(rec)
			processed++

			switch rec.Status {
			case models.StatusSucceeded:
				m.progress.Succeed(item.Filename)
			case models.StatusSkipped:
				m.progress.Skip(item.Filename)
			case models.StatusFailed:
				m.progress.Fail(item.Filename, fmt.Errorf("%s", rec.Error))
			}

			if accountQuota {
				quotaExhausted = true
				logger.Error("Destination account storage is exhausted, remaining items will be skipped")
			}
		}

		if quotaExhausted || next == "" {
			break
		}
		pageToken = next
	}

	return nil
}

// transferItem moves one media item through download and upload. The
// returned flag reports an account-wide quota rejection, which stops the run.
func (m *Manager) transferItem(ctx context.Context, item models.MediaItem) (models.TransferRecord, bool) {
	rec := models.TransferRecord{
		SourceID:  item.ID,
		Filename:  item.Filename,
		StartedAt: time.Now(),
	}

	if m.cfg.DryRun {
		logger.Info("[DRY RUN] Would transfer %s", item.Filename)
		rec.Status = models.StatusSucceeded
		rec.Note = "dry run"
		rec.FinishedAt = time.Now()
		return rec, false
	}

	var localPath string
	err := withRetry(ctx, m.retry, fmt.Sprintf("download %s", item.Filename), func() error {
		var derr error
		localPath, derr = m.source.DownloadItem(ctx, item, m.cfg.DownloadDir)
		return derr
	})
	if err != nil {
		logger.Error("Failed to download %s: %v", item.Filename, err)
		rec.Status = models.StatusFailed
		rec.Error = err.Error()
		rec.FinishedAt = time.Now()
		return rec, false
	}
	defer fshelper.RemoveQuiet(localPath)

	properties := m.uploadProperties(item, localPath)

	var destID string
	err = withRetry(ctx, m.retry, fmt.Sprintf("upload %s", item.Filename), func() error {
		var uerr error
		destID, uerr = m.dest.UploadItem(ctx, localPath, properties)
		return uerr
	})

	switch {
	case err == nil:
		rec.Status = models.StatusSucceeded
		rec.DestinationID = destID
		logger.Info("Transferred %s", item.Filename)
	case common.IsDuplicate(err):
		logger.Info("Skipping %s: already present in the destination", item.Filename)
		rec.Status = models.StatusSkipped
	case common.IsQuotaExceeded(err):
		rec.Status = models.StatusFailed
		rec.Error = err.Error()
		rec.FinishedAt = time.Now()
		return rec, common.IsAccountQuota(err)
	default:
		logger.Error("Failed to upload %s: %v", item.Filename, err)
		rec.Status = models.StatusFailed
		rec.Error = err.Error()
	}

	if rec.Status == models.StatusSucceeded {
		m.linkToAlbums(ctx, &rec, item)
	}

	rec.FinishedAt = time.Now()
	return rec, false
}

// linkToAlbums adds an uploaded item to every mapped destination album it
// belonged to at the source. Link failures become a note on the record and
// never demote its status.
func (m *Manager) linkToAlbums(ctx context.Context, rec *models.TransferRecord, item models.MediaItem) {
	var failed []string

	for _, sourceAlbumID := range m.membership[item.ID] {
		destAlbumID, ok := m.albumMapping[sourceAlbumID]
		if !ok {
			continue
		}

		title := m.albumTitles[sourceAlbumID]
		err := withRetry(ctx, m.retry, fmt.Sprintf("add %s to album %q", item.Filename, title), func() error {
			return m.dest.AddItemToAlbum(ctx, destAlbumID, rec.DestinationID)
		})
		if err != nil {
			logger.Warn("Failed to add %s to album %q: %v", item.Filename, title, err)
			failed = append(failed, title)
		} else {
			logger.Debug("Added %s to album %q", item.Filename, title)
		}
	}

	if len(failed) > 0 {
		rec.Note = "uploaded but not added to albums: " + strings.Join(failed, ", ")
	}
}

// uploadProperties builds the destination property map for an item, falling
// back to EXIF for the capture time when the API metadata carries none.
func (m *Manager) uploadProperties(item models.MediaItem, localPath string) map[string]string {
	properties := map[string]string{
		"google-photos-id": item.ID,
		"mime-type":        item.MimeType,
	}

	created := item.CreationTime
	if created.IsZero() {
		if t, ok := exif.CaptureTimeFromFile(localPath); ok {
			created = t
		}
	}
	if !created.IsZero() {
		properties["creation-time"] = created.UTC().Format(time.RFC3339)
	}
	if item.Width > 0 {
		properties["width"] = strconv.FormatInt(item.Width, 10)
	}
	if item.Height > 0 {
		properties["height"] = strconv.FormatInt(item.Height, 10)
	}

	return properties
}
