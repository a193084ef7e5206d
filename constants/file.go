package constants

import "strings"

// AllowedExtensions holds the default allowed file extensions for inbox discovery.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"md":   {},
	"txt":  {},
	"eml":  {},
	"csv":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether a normalized extension is eligible for ingestion.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[ext]
	return ok
}
