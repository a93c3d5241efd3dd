package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidset/internal/analysis"
	"vidset/internal/appcore"
	"vidset/internal/appdirs"
	"vidset/internal/fingerprint"
	"vidset/internal/types"
	apperrors "vidset/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "db", "vidset.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestResolveDBPathUsesCacheDir(t *testing.T) {
	originalResolver := appDirsResolver
	t.Cleanup(func() {
		appDirsResolver = originalResolver
	})

	tempDir := t.TempDir()
	cacheDir := filepath.Join(tempDir, "cache-root")
	appDirsResolver = func() (appdirs.Paths, error) {
		return appdirs.Paths{
			OutputDir: filepath.Join(tempDir, "output-root"),
			CacheDir:  cacheDir,
		}, nil
	}

	got, err := resolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "vidset.db"), got)
}

func TestSaveAndGetJob(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job := &types.Job{JobId: "job-1", Type: "quality", Stage: uint8(appcore.JobStageQueued), InputPath: "/v.mp4"}
	require.NoError(t, store.SaveJob(ctx, job))
	firstID := job.Id

	job.Message = "updated"
	require.NoError(t, store.SaveJob(ctx, job))
	assert.Equal(t, firstID, job.Id, "saving again updates the same row")

	got, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Message)
	assert.Equal(t, "/v.mp4", got.InputPath)

	_, err = store.GetJob(ctx, "nope")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	require.NoError(t, store.DeleteJob(ctx, "job-1"))
	_, err = store.GetJob(ctx, "job-1")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestUpdateJobProgress(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, &types.Job{JobId: "job-2", Type: "split", Stage: uint8(appcore.JobStageQueued)}))

	require.NoError(t, store.UpdateJobProgress(ctx, "job-2", appcore.JobStagePreparing, 0, 0, "starting"))
	require.NoError(t, store.UpdateJobProgress(ctx, "job-2", appcore.JobStageSucceeded, 3, 3, "done"))

	got, err := store.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, uint8(appcore.JobStageSucceeded), got.Stage)
	assert.Equal(t, int64(3), got.Current)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)

	err = store.UpdateJobProgress(ctx, "missing", appcore.JobStageFailed, 0, 0, "")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestListJobsAndMarkStale(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	stages := map[string]appcore.JobStage{
		"a": appcore.JobStageProcessing,
		"b": appcore.JobStageQueued,
		"c": appcore.JobStageSucceeded,
	}
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveJob(ctx, &types.Job{JobId: id, Stage: uint8(stages[id])}))
	}

	jobs, err := store.ListJobs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	n, err := store.MarkStaleJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	a, err := store.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, uint8(appcore.JobStageFailed), a.Stage)
	assert.NotEmpty(t, a.FailReason)

	c, err := store.GetJob(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, uint8(appcore.JobStageSucceeded), c.Stage)
}

func TestFingerprintCache(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := fingerprint.Key{Path: "/v.mp4", Size: 10, ModTime: time.Unix(100, 5), SampleCount: 10, Method: "digest"}

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, key, "abc"))
	require.NoError(t, store.Put(ctx, key, "abcd"))
	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abcd", got)

	changed := key
	changed.ModTime = key.ModTime.Add(time.Second)
	_, ok, err = store.Get(ctx, changed)
	require.NoError(t, err)
	assert.False(t, ok, "a modified file misses the cache")

	other := key
	other.Method = "perceptual"
	_, ok, err = store.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQualityCache(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	key := analysis.QualityKey{Path: "/v.mp4", Size: 0, ModTime: time.Unix(5, 0), Samples: 10}
	report := analysis.QualityReport{Path: "/v.mp4", FPS: 25, Width: 64, Height: 48, Sharpness: 12.5, QualityScore: 0.4}

	require.NoError(t, store.PutQuality(ctx, key, report))
	got, ok, err := store.GetQuality(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, report, got)

	key.Samples = 5
	_, ok, err = store.GetQuality(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
