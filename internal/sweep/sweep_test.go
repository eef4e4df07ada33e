package sweep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOnceRemovesOnlyOldStagingDirs(t *testing.T) {
	root := t.TempDir()
	stagingRoot := filepath.Join(root, ".temp")
	require.NoError(t, os.MkdirAll(stagingRoot, 0o755))

	oldDir := filepath.Join(stagingRoot, "old")
	require.NoError(t, os.MkdirAll(oldDir, 0o755))
	oldTime := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, oldTime, oldTime))

	freshDir := filepath.Join(stagingRoot, "fresh")
	require.NoError(t, os.MkdirAll(freshDir, 0o755))

	sweeper := New(root, time.Hour, nil)
	sweeper.RunOnce()

	_, err := os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err), "old staging dir should be removed")

	_, err = os.Stat(freshDir)
	assert.NoError(t, err, "fresh staging dir must survive")
}

func TestRunOnceToleratesMissingStagingRoot(t *testing.T) {
	root := t.TempDir()
	sweeper := New(root, time.Hour, nil)
	assert.NotPanics(t, func() { sweeper.RunOnce() })
}

func TestRunOnceNeverTouchesPositiveEntries(t *testing.T) {
	root := t.TempDir()
	positiveDir := filepath.Join(root, "ntdll.pdb", "ABCDEF0123456789ABCDEF01234567891")
	require.NoError(t, os.MkdirAll(positiveDir, 0o755))
	positivePath := filepath.Join(positiveDir, "ntdll.pdb-v3.1.0.symcache")
	require.NoError(t, os.WriteFile(positivePath, []byte("bytes"), 0o644))

	sweeper := New(root, time.Hour, nil)
	sweeper.RunOnce()

	_, err := os.Stat(positivePath)
	assert.NoError(t, err)
}

func TestStartAndStopWithoutCycle(t *testing.T) {
	root := t.TempDir()
	sweeper := New(root, time.Hour, nil)
	require.NoError(t, sweeper.Start("@every 1h"))
	sweeper.Stop()
}
