package clean

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCleanerImpl(t *testing.T) {
	c, err := newCleanerImpl(store.NewMemory(), "/data")
	require.Nil(t, err)
	assert.Equal(t, 4, len(c.jobs))
}

func TestNewCleanerImpl_FailsOnNoStorage(t *testing.T) {
	c, err := newCleanerImpl(store.NewMemory(), "")
	assert.Nil(t, c)
	assert.NotNil(t, err)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, os.MkdirAll(filepath.Join(dir, "uploads"), 0755))
	require.Nil(t, os.MkdirAll(filepath.Join(dir, "workspace", "id1"), 0755))
	require.Nil(t, os.MkdirAll(filepath.Join(dir, "outputs"), 0755))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "uploads", "id1.mp3"), []byte("olia"), 0644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "outputs", "id1.pptx"), []byte("olia"), 0644))

	jobStore := store.NewMemory()
	require.Nil(t, jobStore.Insert(context.Background(), &jobs.Job{ID: "id1"}))

	c, err := newCleanerImpl(jobStore, dir)
	require.Nil(t, err)
	require.Nil(t, c.Clean("id1"))

	for _, f := range []string{filepath.Join(dir, "uploads", "id1.mp3"),
		filepath.Join(dir, "workspace", "id1"), filepath.Join(dir, "outputs", "id1.pptx")} {
		_, err := os.Stat(f)
		assert.True(t, os.IsNotExist(err), "expected %s removed", f)
	}
	_, err = jobStore.Load(context.Background(), "id1")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestClean_UnknownIDIsOK(t *testing.T) {
	c, err := newCleanerImpl(store.NewMemory(), t.TempDir())
	require.Nil(t, err)
	assert.Nil(t, c.Clean("olia"))
}
