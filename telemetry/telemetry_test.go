package telemetry

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drozbay/RES4LYF/sampler"
	"github.com/drozbay/RES4LYF/tensor"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func progressAt(step int, sigma float64) sampler.Progress {
	return sampler.Progress{
		Step:      step,
		Sigma:     sigma,
		SigmaHat:  sigma,
		SigmaNext: sigma / 2,
		X:         tensor.FromSlice([]float64{3, 4}, 1, 2),
		Denoised2: tensor.FromSlice([]float64{0.6, 0.8}, 1, 2),
	}
}

func TestRunRoundTrip(t *testing.T) {
	store := openTestStore(t)

	run, err := store.BeginRun("res_2s", "mean", 42)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	record := run.Progress()
	record(progressAt(0, 2))
	record(progressAt(1, 1))
	require.NoError(t, run.End())

	rec, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "res_2s", rec.Method)
	assert.Equal(t, "mean", rec.Policy)
	assert.Equal(t, int64(42), rec.Seed)
	assert.Equal(t, 2, rec.Steps)
	require.NotNil(t, rec.EndedAt)

	steps, err := store.GetSteps(run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 0, steps[0].Step)
	assert.Equal(t, 1, steps[1].Step)
	assert.InDelta(t, 2, steps[0].Sigma, 1e-9)
	assert.InDelta(t, 5, steps[0].StateNorm, 1e-9)
	assert.InDelta(t, 1, steps[0].DenoisedNorm, 1e-9)
}

func TestUnfinishedRunHasNoEndTime(t *testing.T) {
	store := openTestStore(t)

	run, err := store.BeginRun("euler", "", 0)
	require.NoError(t, err)

	rec, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Empty(t, rec.Policy)
	assert.Nil(t, rec.EndedAt)
}

func TestGetRunUnknownID(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetRun("no-such-run")
	assert.Error(t, err)
}

func TestRecentRuns(t *testing.T) {
	store := openTestStore(t)

	for _, method := range []string{"euler", "res_2s", "res_3s"} {
		run, err := store.BeginRun(method, "mean", 1)
		require.NoError(t, err)
		require.NoError(t, run.End())
	}

	runs, err := store.RecentRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestProgressWithoutDenoisedEstimate(t *testing.T) {
	store := openTestStore(t)

	run, err := store.BeginRun("euler", "", 0)
	require.NoError(t, err)

	p := progressAt(0, 1)
	p.Denoised2 = nil
	run.Progress()(p)

	steps, err := store.GetSteps(run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Zero(t, steps[0].DenoisedNorm)
}

func TestExportRunJSON(t *testing.T) {
	store := openTestStore(t)

	run, err := store.BeginRun("res_2m", "median", 7)
	require.NoError(t, err)
	run.Progress()(progressAt(0, 2))
	require.NoError(t, run.End())

	raw, err := store.ExportRunJSON(run.ID)
	require.NoError(t, err)

	var export struct {
		Run   RunRecord    `json:"run"`
		Steps []StepRecord `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Equal(t, run.ID, export.Run.ID)
	assert.Equal(t, "res_2m", export.Run.Method)
	require.Len(t, export.Steps, 1)
	assert.InDelta(t, 2, export.Steps[0].Sigma, 1e-9)
}
