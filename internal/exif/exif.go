// internal/exif/exif.go
package exif

import (
	"io"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Data represents the EXIF fields the transfer cares about
type Data struct {
	DateTime *time.Time
	Make     string
	Model    string
}

// Extract extracts EXIF metadata from a reader
func Extract(r io.Reader) (*Data, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, err
	}

	data := &Data{}

	if dt, err := x.DateTime(); err == nil {
		data.DateTime = &dt
	}

	if tag, err := x.Get(exif.Make); err == nil {
		if str, err := tag.StringVal(); err == nil {
			data.Make = str
		}
	}

	if tag, err := x.Get(exif.Model); err == nil {
		if str, err := tag.StringVal(); err == nil {
			data.Model = str
		}
	}

	return data, nil
}

// CaptureTimeFromFile reads the capture time from a media file on disk.
// Returns false when the file has no usable EXIF block.
func CaptureTimeFromFile(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	data, err := Extract(f)
	if err != nil || data.DateTime == nil {
		return time.Time{}, false
	}
	return *data.DateTime, true
}
