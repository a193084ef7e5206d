package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCatalogRecordAndList(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	dir := t.TempDir()

	first := writeFile(t, dir, "intro-call.md", "# Intro call\nnotes")
	second := writeFile(t, dir, "contract.pdf", "%PDF-1.4 stub")

	fi, err := c.Record(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "intro-call.md", fi.File)
	assert.Equal(t, int64(len("# Intro call\nnotes")), fi.Size)

	_, err = c.Record(ctx, second)
	require.NoError(t, err)

	files, err := c.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro-call.md", "contract.pdf"}, files, "arrival order")
}

func TestCatalogRecordRejectsUnknownExtension(t *testing.T) {
	c := openTestCatalog(t)
	path := writeFile(t, t.TempDir(), "payload.exe", "MZ")

	_, err := c.Record(context.Background(), path)
	require.Error(t, err)
}

func TestCatalogReRecordKeepsArrivalSlot(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	dir := t.TempDir()

	a := writeFile(t, dir, "a.md", "one")
	b := writeFile(t, dir, "b.md", "two")
	_, err := c.Record(ctx, a)
	require.NoError(t, err)
	_, err = c.Record(ctx, b)
	require.NoError(t, err)

	// a.md is rewritten and re-recorded; it must not jump behind b.md.
	a = writeFile(t, dir, "a.md", "one, updated")
	fi, err := c.Record(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(len("one, updated")), fi.Size)

	files, err := c.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, files)
}

func TestCatalogRemove(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	path := writeFile(t, t.TempDir(), "gone.txt", "bye")

	_, err := c.Record(ctx, path)
	require.NoError(t, err)
	require.NoError(t, c.Remove(ctx, "gone.txt"))

	files, err := c.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = c.PathFor(ctx, "gone.txt")
	require.Error(t, err)
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	c := openTestCatalog(t)
	path := writeFile(t, t.TempDir(), "notes.txt", "hello relationship manager\nsecond line")

	_, err := c.Record(ctx, path)
	require.NoError(t, err)

	got, err := c.Preview(ctx, "notes.txt", 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	full, err := c.Preview(ctx, "notes.txt", 4096)
	require.NoError(t, err)
	assert.Contains(t, full, "second line")
}

func TestSanitizePreviewCutoff(t *testing.T) {
	// "héllo" cut mid-rune must not yield a replacement-char tail.
	b := []byte("héllo")[:2]
	assert.Equal(t, "h", sanitizePreview(b))
	assert.Equal(t, "ab", sanitizePreview([]byte("a\x00b")))
}

func TestHumanizeFilename(t *testing.T) {
	assert.Equal(t, "Q3 sales deck", HumanizeFilename("q3_sales-deck.pdf"))
	assert.Equal(t, "Notes", HumanizeFilename("notes.md"))
	assert.Equal(t, ".md", HumanizeFilename(".md"))
}
