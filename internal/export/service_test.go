package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/relaydesk/inbox-pilot/constants"
	"github.com/relaydesk/inbox-pilot/internal/inbox"
	"github.com/relaydesk/inbox-pilot/internal/orchestrator"
)

func TestExportSnapshotXLSX(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	catalog, err := inbox.OpenCatalog(ctx, filepath.Join(dir, "catalog.db"), nil)
	require.NoError(t, err)
	defer catalog.Close()

	for _, name := range []string{"intro-call.md", "contract.pdf"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
		_, err := catalog.Record(ctx, path)
		require.NoError(t, err)
	}

	snapshot := func(context.Context) map[string]orchestrator.ItemState {
		return map[string]orchestrator.ItemState{
			"intro-call.md": {Status: constants.ItemStatusProcessed},
			"contract.pdf":  {Status: constants.ItemStatusError, LastError: "model refused"},
		}
	}

	svc := NewService(catalog, snapshot, nil)
	raw, err := svc.ExportSnapshotXLSX(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Inbox")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, "intro-call.md", rows[1][0])
	assert.Equal(t, "Intro call", rows[1][1])
	assert.Equal(t, "PROCESSED", rows[1][4])
	assert.Equal(t, "contract.pdf", rows[2][0])
	assert.Equal(t, "ERROR", rows[2][4])
	assert.Equal(t, "model refused", rows[2][5])
}

func TestExportEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	catalog, err := inbox.OpenCatalog(ctx, filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	defer catalog.Close()

	svc := NewService(catalog, func(context.Context) map[string]orchestrator.ItemState {
		return nil
	}, nil)

	raw, err := svc.ExportSnapshotXLSX(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}
