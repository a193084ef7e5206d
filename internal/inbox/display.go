package inbox

import (
	"path/filepath"
	"strings"
	"unicode"
)

// HumanizeFilename turns a file name into a display title: extension dropped,
// separators spaced, first letter capitalized. Cosmetic only; routing always
// uses the raw file name.
func HumanizeFilename(file string) string {
	name := strings.TrimSuffix(file, filepath.Ext(file))
	name = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return file
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
