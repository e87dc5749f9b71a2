package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ixerrors "github.com/idxbench/idxbench/internal/errors"
	"github.com/idxbench/idxbench/internal/runcfg"
)

func TestProvision_DefaultIsVolatile(t *testing.T) {
	d, err := Provision(runcfg.New(), "index", false)
	require.NoError(t, err)
	defer d.Close()

	assert.True(t, d.IsMem())
	assert.Empty(t, d.IndexPath())
	assert.Equal(t, ":memory:", d.TaxonomyDSN())
	assert.Zero(t, d.SizeBytes())
}

func TestProvision_FilesystemCreatesAndErases(t *testing.T) {
	root := t.TempDir()
	cfg := runcfg.FromMap(map[string]string{
		"directory.index": "fs",
		"work.dir":        root,
	})

	stale := filepath.Join(root, "index", "stale.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old run"), 0o644))

	d, err := Provision(cfg, "index", true)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, BackendFS, d.Backend())
	assert.NoFileExists(t, stale)
	assert.DirExists(t, d.Path())
	assert.Equal(t, filepath.Join(root, "index", "index.bleve"), d.IndexPath())
}

func TestProvision_RepeatedEraseIsIdempotent(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{
		"directory.index": "fs",
		"work.dir":        t.TempDir(),
	})

	d, err := Provision(cfg, "index", true)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	// Second erase must not fail on the now-empty directory.
	d2, err := Provision(cfg, "index", true)
	require.NoError(t, err)
	require.NoError(t, d2.Close())
}

func TestProvision_ConcurrentLockRefused(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{
		"directory.index": "fs",
		"work.dir":        t.TempDir(),
	})

	d, err := Provision(cfg, "index", false)
	require.NoError(t, err)
	defer d.Close()

	_, err = Provision(cfg, "index", false)
	require.Error(t, err)
	assert.Equal(t, ixerrors.ErrCodeDirLocked, ixerrors.GetCode(err))
}

func TestProvision_UnknownBackend(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{"directory.index": "nvram"})
	_, err := Provision(cfg, "index", false)
	require.Error(t, err)
	assert.Equal(t, ixerrors.ErrCodeConfigInvalid, ixerrors.GetCode(err))
}

func TestSizeBytes_SumsFiles(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{
		"directory.index": "fs",
		"work.dir":        t.TempDir(),
	})
	d, err := Provision(cfg, "index", false)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), "seg0"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), "seg1"), make([]byte, 28), 0o644))

	assert.GreaterOrEqual(t, d.SizeBytes(), uint64(128))
}

func TestClose_Idempotent(t *testing.T) {
	cfg := runcfg.FromMap(map[string]string{
		"directory.index": "fs",
		"work.dir":        t.TempDir(),
	})
	d, err := Provision(cfg, "index", false)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}
