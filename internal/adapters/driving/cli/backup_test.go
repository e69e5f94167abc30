package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupExportCmd_PrintsURL(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "backup", "export")

	assert.NoError(t, err)
	assert.Contains(t, out, "http://backend/exports/backup.zip")
}

func TestBackupExportCmd_DownloadsToFile(t *testing.T) {
	_, _, remote, cleanup := setupTestServices()
	defer cleanup()
	remote.downloads = map[string][]byte{
		"http://backend/exports/backup.zip": []byte("zip-bytes"),
	}

	path := filepath.Join(t.TempDir(), "backup.zip")
	out, err := runCommand(t, "backup", "export", "--output", path)
	defer func() { exportOutput = "" }()

	assert.NoError(t, err)
	assert.Contains(t, out, "Backup written to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("zip-bytes"), data)
}

func TestBackupImportCmd(t *testing.T) {
	_, _, remote, cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "backup.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip-bytes"), 0600))

	out, err := runCommand(t, "backup", "import", path)

	assert.NoError(t, err)
	assert.Contains(t, out, "Backup imported.")
	assert.Equal(t, []string{"backup.zip"}, remote.imported)
}

func TestBackupImportCmd_MissingFile(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "backup", "import", "/does/not/exist.zip")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open archive")
}
