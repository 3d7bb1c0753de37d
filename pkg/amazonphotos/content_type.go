package amazonphotos

import (
	"mime"
	"path/filepath"
	"strings"
)

// Common MIME types for media file extensions
var commonMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".heif": "image/heif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".3gp":  "video/3gpp",
}

// DetectContentType returns the MIME type for a file based on its extension
func DetectContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	if contentType, ok := commonMimeTypes[ext]; ok {
		return contentType
	}

	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	return "application/octet-stream"
}

// IsImageFile checks if a file is an image
func IsImageFile(filename string) bool {
	return strings.HasPrefix(DetectContentType(filename), "image/")
}

// IsVideoFile checks if a file is a video
func IsVideoFile(filename string) bool {
	return strings.HasPrefix(DetectContentType(filename), "video/")
}

// IsMediaFile checks if a file is a media file (image or video)
func IsMediaFile(filename string) bool {
	return IsImageFile(filename) || IsVideoFile(filename)
}
