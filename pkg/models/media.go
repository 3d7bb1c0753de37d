package models

import (
	"strings"
	"time"
)

// MediaItem is a single photo or video listed from the source library.
// Items are immutable once fetched; they live only for the duration of a run.
type MediaItem struct {
	ID           string
	Filename     string
	MimeType     string
	BaseURL      string
	Size         int64
	CreationTime time.Time
	Width        int64
	Height       int64
}

// IsVideo reports whether the item needs the video download variant.
func (m *MediaItem) IsVideo() bool {
	return strings.HasPrefix(m.MimeType, "video/")
}

// IsImage reports whether the item is a still image.
func (m *MediaItem) IsImage() bool {
	return strings.HasPrefix(m.MimeType, "image/")
}

// Album is a source album. Source albums are read-only inputs; destination
// albums are created fresh with a 1:1 name mapping.
type Album struct {
	ID         string
	Title      string
	ProductURL string
	ItemCount  int
}
