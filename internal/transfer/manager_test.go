package transfer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/internal/config"
	"github.com/bstardust/gphotos-amazon-transfer/internal/progress"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock source client
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Authenticate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSource) ListMediaItems(ctx context.Context, pageSize int, pageToken, albumID string) ([]models.MediaItem, string, error) {
	args := m.Called(ctx, pageSize, pageToken, albumID)
	return args.Get(0).([]models.MediaItem), args.String(1), args.Error(2)
}

func (m *MockSource) ListAlbums(ctx context.Context) ([]models.Album, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Album), args.Error(1)
}

func (m *MockSource) DownloadItem(ctx context.Context, item models.MediaItem, dir string) (string, error) {
	args := m.Called(ctx, item, dir)
	return args.String(0), args.Error(1)
}

// Mock destination client
type MockDest struct {
	mock.Mock
}

func (m *MockDest) Authenticate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDest) CreateAlbum(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockDest) UploadItem(ctx context.Context, localPath string, properties map[string]string) (string, error) {
	args := m.Called(ctx, localPath, properties)
	return args.String(0), args.Error(1)
}

func (m *MockDest) AddItemToAlbum(ctx context.Context, albumID, itemID string) error {
	args := m.Called(ctx, albumID, itemID)
	return args.Error(0)
}

func testItem(id, filename string) models.MediaItem {
	return models.MediaItem{
		ID:           id,
		Filename:     filename,
		MimeType:     "image/jpeg",
		BaseURL:      "https://example.com/" + id,
		CreationTime: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  1.0,
		MaxBackoff:     time.Millisecond,
		Sleep:          func(time.Duration) {},
	}
}

func newTestManager(t *testing.T, source *MockSource, dest *MockDest, cfg config.TransferConfig) *Manager {
	t.Helper()
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = t.TempDir()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	m := New(source, dest, cfg, progress.New())
	m.SetRetryConfig(testRetryConfig())
	return m
}

func TestRun_TransfersAllItems(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	items := []models.MediaItem{testItem("p1", "one.jpg"), testItem("p2", "two.jpg")}

	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil)
	source.On("DownloadItem", mock.Anything, items[1], mock.Anything).Return(filepath.Join(t.TempDir(), "two.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d1", nil).Once()
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d2", nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, 0, rep.Skipped)
	assert.Equal(t, rep.Total, rep.Succeeded+rep.Failed+rep.Skipped)
	assert.Equal(t, "p1", rep.Records[0].SourceID)
	assert.Equal(t, "d1", rep.Records[0].DestinationID)
	assert.Equal(t, "p2", rep.Records[1].SourceID)
	source.AssertExpectations(t)
	dest.AssertExpectations(t)
}

func TestRun_DryRunPerformsNoTransfers(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	albums := []models.Album{{ID: "a1", Title: "Trip"}}
	items := []models.MediaItem{testItem("p1", "one.jpg"), testItem("p2", "two.jpg"), testItem("p3", "three.jpg")}

	source.On("ListAlbums", mock.Anything).Return(albums, nil).Once()
	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{DryRun: true})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 3, rep.Succeeded)
	assert.Equal(t, 1, rep.AlbumsTotal)
	assert.Equal(t, 1, rep.AlbumsSucceeded)
	source.AssertNotCalled(t, "DownloadItem", mock.Anything, mock.Anything, mock.Anything)
	dest.AssertNotCalled(t, "CreateAlbum", mock.Anything, mock.Anything)
	dest.AssertNotCalled(t, "UploadItem", mock.Anything, mock.Anything, mock.Anything)
	dest.AssertNotCalled(t, "AddItemToAlbum", mock.Anything, mock.Anything, mock.Anything)
	source.AssertExpectations(t)
}

func TestRun_DuplicateUploadIsSkipped(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	items := []models.MediaItem{testItem("p1", "one.jpg")}

	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).
		Return("", &common.DuplicateError{Filename: "one.jpg"}).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, models.StatusSkipped, rep.Records[0].Status)
	assert.Empty(t, rep.Records[0].Error)
	dest.AssertExpectations(t)
}

func TestRun_FailureIsolation(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	items := []models.MediaItem{
		testItem("p1", "one.jpg"),
		testItem("p2", "two.jpg"),
		testItem("p3", "three.jpg"),
	}

	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil)
	source.On("DownloadItem", mock.Anything, items[1], mock.Anything).
		Return("", &common.DownloadError{Filename: "two.jpg", Err: errors.New("corrupt response")})
	source.On("DownloadItem", mock.Anything, items[2], mock.Anything).Return(filepath.Join(t.TempDir(), "three.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d1", nil).Once()
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d3", nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)

	// Order is preserved and only the middle item failed.
	assert.Equal(t, models.StatusSucceeded, rep.Records[0].Status)
	assert.Equal(t, models.StatusFailed, rep.Records[1].Status)
	assert.Equal(t, models.StatusSucceeded, rep.Records[2].Status)
	assert.Contains(t, rep.Records[1].Error, "two.jpg")
	dest.AssertExpectations(t)
}

func TestRun_MaxPhotosCapsEnumeration(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	// The source returns more items than requested; the cap still holds.
	items := []models.MediaItem{
		testItem("p1", "one.jpg"),
		testItem("p2", "two.jpg"),
		testItem("p3", "three.jpg"),
	}

	source.On("ListMediaItems", mock.Anything, 2, "", "").Return(items, "token", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil)
	source.On("DownloadItem", mock.Anything, items[1], mock.Anything).Return(filepath.Join(t.TempDir(), "two.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d1", nil).Once()
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d2", nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true, MaxPhotos: 2, BatchSize: 5})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, rep.Total)
	source.AssertNumberOfCalls(t, "ListMediaItems", 1)
	dest.AssertExpectations(t)
}

func TestRun_RateLimitRetriesThenFails(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	items := []models.MediaItem{testItem("p1", "one.jpg")}

	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).
		Return("", &common.RateLimitError{Vendor: "amazon"}).Times(3)

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Contains(t, rep.Records[0].Error, "rate limit")
	assert.Contains(t, rep.Records[0].Error, "after 3 attempts")
	dest.AssertNumberOfCalls(t, "UploadItem", 3)
	dest.AssertExpectations(t)
}

func TestRun_AccountQuotaStopsRun(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	items := []models.MediaItem{
		testItem("p1", "one.jpg"),
		testItem("p2", "two.jpg"),
		testItem("p3", "three.jpg"),
	}

	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "token", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil).Once()
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).
		Return("", &common.QuotaExceededError{Message: "storage full", AccountWide: true}).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.Skipped)
	assert.Contains(t, rep.Records[1].Error, "quota")
	assert.Contains(t, rep.Records[2].Error, "quota")

	// No further pages fetched and no further uploads attempted.
	source.AssertNumberOfCalls(t, "ListMediaItems", 1)
	dest.AssertNumberOfCalls(t, "UploadItem", 1)
	source.AssertExpectations(t)
	dest.AssertExpectations(t)
}

func TestRun_MirrorsAlbumMembership(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	albums := []models.Album{{ID: "a1", Title: "Trip"}}
	itemA := testItem("pA", "a.jpg")
	itemB := testItem("pB", "b.jpg")
	items := []models.MediaItem{itemA, itemB}

	source.On("ListAlbums", mock.Anything).Return(albums, nil).Once()
	dest.On("CreateAlbum", mock.Anything, "Trip").Return("dest-a1", nil).Once()

	// Membership index listing, then the main enumeration.
	source.On("ListMediaItems", mock.Anything, 10, "", "a1").Return(items, "", nil).Once()
	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()

	source.On("DownloadItem", mock.Anything, itemA, mock.Anything).Return(filepath.Join(t.TempDir(), "a.jpg"), nil)
	source.On("DownloadItem", mock.Anything, itemB, mock.Anything).Return(filepath.Join(t.TempDir(), "b.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("dest-A", nil).Once()
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("dest-B", nil).Once()
	dest.On("AddItemToAlbum", mock.Anything, "dest-a1", "dest-A").Return(nil).Once()
	dest.On("AddItemToAlbum", mock.Anything, "dest-a1", "dest-B").Return(nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, rep.AlbumsTotal)
	assert.Equal(t, 1, rep.AlbumsSucceeded)
	assert.Equal(t, "dest-a1", rep.AlbumRecords[0].DestinationID)
	assert.Equal(t, 2, rep.Succeeded)
	source.AssertExpectations(t)
	dest.AssertExpectations(t)
}

func TestRun_AlbumCreationFailureDoesNotAbort(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	albums := []models.Album{{ID: "a1", Title: "Trip"}}
	items := []models.MediaItem{testItem("p1", "one.jpg")}

	source.On("ListAlbums", mock.Anything).Return(albums, nil).Once()
	dest.On("CreateAlbum", mock.Anything, "Trip").Return("", errors.New("album service unavailable")).Times(3)
	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).Return(filepath.Join(t.TempDir(), "one.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d1", nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, rep.AlbumsFailed)
	assert.Equal(t, models.StatusFailed, rep.AlbumRecords[0].Status)
	assert.Equal(t, 1, rep.Succeeded)
	dest.AssertNotCalled(t, "AddItemToAlbum", mock.Anything, mock.Anything, mock.Anything)
	source.AssertExpectations(t)
	dest.AssertExpectations(t)
}

func TestRun_AlbumLinkFailureKeepsItemSucceeded(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	albums := []models.Album{{ID: "a1", Title: "Trip"}}
	itemA := testItem("pA", "a.jpg")
	items := []models.MediaItem{itemA}

	source.On("ListAlbums", mock.Anything).Return(albums, nil).Once()
	dest.On("CreateAlbum", mock.Anything, "Trip").Return("dest-a1", nil).Once()
	source.On("ListMediaItems", mock.Anything, 10, "", "a1").Return(items, "", nil).Once()
	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, itemA, mock.Anything).Return(filepath.Join(t.TempDir(), "a.jpg"), nil)
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("dest-A", nil).Once()
	dest.On("AddItemToAlbum", mock.Anything, "dest-a1", "dest-A").
		Return(&common.NotFoundError{Kind: "album", ID: "dest-a1"}).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{})

	rep, err := manager.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, rep.Records[0].Status)
	assert.Contains(t, rep.Records[0].Note, "Trip")
	dest.AssertExpectations(t)
}

func TestRun_CanceledContextStopsBetweenItems(t *testing.T) {
	source := new(MockSource)
	dest := new(MockDest)

	ctx, cancel := context.WithCancel(context.Background())
	items := []models.MediaItem{testItem("p1", "one.jpg"), testItem("p2", "two.jpg")}

	source.On("ListMediaItems", mock.Anything, 10, "", "").Return(items, "", nil).Once()
	source.On("DownloadItem", mock.Anything, items[0], mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return(filepath.Join(t.TempDir(), "one.jpg"), nil).Once()
	dest.On("UploadItem", mock.Anything, mock.Anything, mock.Anything).Return("d1", nil).Once()

	manager := newTestManager(t, source, dest, config.TransferConfig{SkipAlbums: true})

	rep, err := manager.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rep.Total)
	source.AssertNumberOfCalls(t, "DownloadItem", 1)
}
