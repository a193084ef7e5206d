package inbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Preview returns up to maxBytes of a file's head as display text, resolved
// through the catalog. Binary-ish content still comes back, just sanitized;
// deciding whether to render it is the presentation layer's call.
func (c *Catalog) Preview(ctx context.Context, file string, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = 4096
	}
	path, err := c.PathFor(ctx, file)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	buf := make([]byte, maxBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read: %w", err)
	}
	return sanitizePreview(buf[:n]), nil
}

// sanitizePreview strips NULs, drops a trailing partial rune from the byte
// cutoff, and coerces the rest to valid UTF-8.
func sanitizePreview(b []byte) string {
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			break
		}
		b = b[:len(b)-1]
	}
	s := strings.ToValidUTF8(string(b), "�")
	return strings.ReplaceAll(s, "\x00", "")
}
