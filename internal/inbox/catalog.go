// Package inbox discovers newly arrived files and maintains the metadata
// catalog the orchestrator and the presentation layer read from. The catalog
// stores file metadata only; processing state lives in the orchestrator and is
// intentionally not persisted.
package inbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/relaydesk/inbox-pilot/constants"
)

// FileInfo is the display metadata for one inbox file. File (the base name)
// is the stable identifier; no surrogate id is introduced.
type FileInfo struct {
	File       string    `json:"file"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Catalog is the SQLite-backed record of files seen in the watched roots.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenCatalog opens (creating if needed) the catalog database with WAL mode.
func OpenCatalog(ctx context.Context, path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog pragma: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db, logger: logger}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS inbox_files (
	file        TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	size        INTEGER NOT NULL,
	modified_at TEXT NOT NULL,
	first_seen  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inbox_files_first_seen ON inbox_files(first_seen);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("catalog schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stats path and upserts its metadata, keyed by base name. Re-recording
// an existing file refreshes size/mtime but keeps its original arrival slot,
// so listing order stays strict arrival order.
func (c *Catalog) Record(ctx context.Context, path string) (FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if !constants.AllowedExt(ext) {
		return FileInfo{}, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	st, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat: %w", err)
	}
	if st.IsDir() {
		return FileInfo{}, fmt.Errorf("not a file: %s", abs)
	}

	info := FileInfo{
		File:       filepath.Base(abs),
		Path:       abs,
		Size:       st.Size(),
		ModifiedAt: st.ModTime().UTC(),
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO inbox_files (file, path, size, modified_at, first_seen)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(file) DO UPDATE SET
	path = excluded.path,
	size = excluded.size,
	modified_at = excluded.modified_at`,
		info.File, info.Path, info.Size,
		info.ModifiedAt.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return FileInfo{}, fmt.Errorf("upsert: %w", err)
	}
	c.logger.Debug("inbox.catalog.recorded", "file", info.File, "size", info.Size)
	return info, nil
}

// Remove drops a file from the catalog (e.g. after a delete event).
func (c *Catalog) Remove(ctx context.Context, file string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM inbox_files WHERE file = ?`, file)
	return err
}

// List returns every catalogued file in arrival order.
func (c *Catalog) List(ctx context.Context) ([]FileInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT file, path, size, modified_at FROM inbox_files ORDER BY first_seen, file`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var out []FileInfo
	for rows.Next() {
		var fi FileInfo
		var mod string
		if err := rows.Scan(&fi.File, &fi.Path, &fi.Size, &mod); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, mod); err == nil {
			fi.ModifiedAt = t
		}
		out = append(out, fi)
	}
	return out, rows.Err()
}

// ListFiles returns just the identifiers, in arrival order. This is the
// listing the orchestrator validates against and iterates for batch runs.
func (c *Catalog) ListFiles(ctx context.Context) ([]string, error) {
	infos, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	files := make([]string, len(infos))
	for i, fi := range infos {
		files[i] = fi.File
	}
	return files, nil
}

// PathFor resolves a file identifier back to its absolute path.
func (c *Catalog) PathFor(ctx context.Context, file string) (string, error) {
	var path string
	err := c.db.QueryRowContext(ctx, `SELECT path FROM inbox_files WHERE file = ?`, file).Scan(&path)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("unknown file: %s", file)
	}
	return path, err
}
