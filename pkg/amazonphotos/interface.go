package amazonphotos

import "context"

// Interface defines the destination-side operations the transfer core depends on
type Interface interface {
	// Authenticate exchanges the stored refresh token for a usable session.
	Authenticate(ctx context.Context) error

	// CreateAlbum creates an album with the given name, or returns the id of
	// an existing album with that name. Idempotent by name so re-runs never
	// duplicate albums.
	CreateAlbum(ctx context.Context, name string) (string, error)

	// UploadItem uploads the file at localPath with the given property map
	// and returns the destination item id.
	UploadItem(ctx context.Context, localPath string, properties map[string]string) (string, error)

	// AddItemToAlbum adds an uploaded item to an album. Adding an item that
	// is already a member is a no-op.
	AddItemToAlbum(ctx context.Context, albumID, itemID string) error
}
