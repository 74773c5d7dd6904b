package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// WhiskeyImagePrefix is the key prefix for uploaded whiskey images.
const WhiskeyImagePrefix = "uploads/whiskey/"

// immutableCacheControl is sent for image keys, which are never rewritten.
const immutableCacheControl = "public, max-age=31536000, immutable"

// WhiskeyImageKey returns a fresh object key for an uploaded image. Only
// the extension of filename is kept; fallbackExt is used when filename has
// none.
func WhiskeyImageKey(filename, fallbackExt string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(sanitizeFilename(filename)), "."))
	if !isSafeExt(ext) {
		ext = strings.ToLower(fallbackExt)
	}
	return path.Join(WhiskeyImagePrefix, uuid.NewString()+"."+ext)
}

func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")
	return path.Base(filename)
}

func isSafeExt(ext string) bool {
	if ext == "" || len(ext) > 10 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// cacheControlFor returns the Cache-Control header stored with key.
func cacheControlFor(key string) string {
	if strings.HasPrefix(key, WhiskeyImagePrefix) {
		return immutableCacheControl
	}
	return ""
}
