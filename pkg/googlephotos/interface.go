package googlephotos

import (
	"context"

	"github.com/bstardust/gphotos-amazon-transfer/pkg/models"
)

// Interface defines the source-side operations the transfer core depends on
type Interface interface {
	// Authenticate establishes a usable API session from stored credentials.
	Authenticate(ctx context.Context) error

	// ListMediaItems returns one page of media items and the token for the
	// next page. An empty albumID lists the whole library; a non-empty one
	// scopes the listing to that album.
	ListMediaItems(ctx context.Context, pageSize int, pageToken, albumID string) ([]models.MediaItem, string, error)

	// ListAlbums returns all albums, paginating internally.
	ListAlbums(ctx context.Context) ([]models.Album, error)

	// DownloadItem fetches the item's bytes into dir and returns the local
	// path. Partial files are removed on failure.
	DownloadItem(ctx context.Context, item models.MediaItem, dir string) (string, error)
}
