package serve

import "strings"

// contentTypeFor dispatches on the served file's extension, the same set
// the teacher's CDN handler switches on for HLS output.
func contentTypeFor(fileInDirectory string) string {
	switch {
	case strings.HasSuffix(fileInDirectory, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(fileInDirectory, ".ts"):
		return "video/mp2t"
	case strings.HasSuffix(fileInDirectory, ".jpg"), strings.HasSuffix(fileInDirectory, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// cacheControlFor mirrors the teacher's cdn.go split: playlists are
// revalidated on every fetch since a live upload can still be appending
// renditions, segments and thumbnails are immutable once written.
func cacheControlFor(fileInDirectory string) string {
	switch {
	case strings.HasSuffix(fileInDirectory, ".m3u8"):
		return "no-cache, must-revalidate"
	case strings.HasSuffix(fileInDirectory, ".ts"):
		return "public, max-age=31536000, immutable"
	case strings.HasSuffix(fileInDirectory, ".jpg"), strings.HasSuffix(fileInDirectory, ".jpeg"):
		return "public, max-age=86400"
	default:
		return "no-store"
	}
}
