package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shopmetrics-backend/lib/testutil"
	"shopmetrics-backend/services/metricstore"
	"shopmetrics-backend/services/metricstore/db"
	"shopmetrics-backend/services/worker"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestStateRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	state := State{
		StartedAt: "2025-08-05T19:40:56.053000+00:00",
		Workers: []WorkerState{
			{WorkerId: 0, Pid: 1234, Range: worker.Range{Start: 1, End: 4}, StartedAt: "2025-08-05T19:40:56.053000+00:00"},
			{WorkerId: 1, Pid: 1235, Range: worker.Range{Start: 5, End: 7}, StartedAt: "2025-08-05T19:40:57.000000+00:00"},
		},
	}
	require.NoError(t, SaveState(path, state))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	require.Equal(t, state, loaded)

	// overwriting replaces the old snapshot completely
	state.Workers = state.Workers[:1]
	require.NoError(t, SaveState(path, state))
	loaded, err = LoadState(path)
	require.NoError(t, err)
	require.Len(t, loaded.Workers, 1)

	require.NoError(t, RemoveState(path))
	_, err = LoadState(path)
	require.True(t, os.IsNotExist(err))
	// removing twice is fine
	require.NoError(t, RemoveState(path))
}

func TestLoadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadState(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "corrupt state file")
}

func TestStatusWithoutStateFile(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/orchestrator",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := metricstore.NewStore(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.EnsureShop(ctx, "https://a.example.com", nil, nil)
	require.NoError(t, err)
	_, err = store.EnsureShop(ctx, "https://b.example.com", nil, nil)
	require.NoError(t, err)

	o := New(Config{
		StateFile: filepath.Join(t.TempDir(), "state.json"),
	}, store)

	report, err := o.Status(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Workers)
	require.Equal(t, int64(2), report.StatusCounts[metricstore.StatusEmpty])
}

func TestMonitorRecordsExit(t *testing.T) {
	dir := t.TempDir()
	o := New(Config{
		WorkerBinary: "true",
		NumWorkers:   1,
		StartID:      1,
		EndID:        2,
		StateFile:    filepath.Join(dir, "state.json"),
		LogDir:       filepath.Join(dir, "logs"),
	}, metricstore.Store{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	state, err := o.Start(ctx)
	require.NoError(t, err)
	require.Len(t, state.Workers, 1)
	require.NoError(t, o.Monitor(ctx))

	loaded, err := LoadState(o.cfg.StateFile)
	require.NoError(t, err)
	require.Len(t, loaded.Workers, 1)
	require.NotNil(t, loaded.Workers[0].ReturnCode)
	require.Equal(t, 0, *loaded.Workers[0].ReturnCode)
	require.NotEmpty(t, loaded.Workers[0].EndedAt)
}

func TestMonitorRecordsFailure(t *testing.T) {
	dir := t.TempDir()
	o := New(Config{
		WorkerBinary: "false",
		NumWorkers:   1,
		StartID:      1,
		EndID:        2,
		StateFile:    filepath.Join(dir, "state.json"),
		LogDir:       filepath.Join(dir, "logs"),
	}, metricstore.Store{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	_, err := o.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, o.Monitor(ctx))

	loaded, err := LoadState(o.cfg.StateFile)
	require.NoError(t, err)
	require.NotNil(t, loaded.Workers[0].ReturnCode)
	require.Equal(t, 1, *loaded.Workers[0].ReturnCode)
}

func TestStartRefusesCorruptState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	o := New(Config{
		WorkerBinary: "true",
		NumWorkers:   1,
		StartID:      1,
		EndID:        2,
		StateFile:    path,
		LogDir:       filepath.Join(dir, "logs"),
	}, metricstore.Store{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := o.Start(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "corrupt state file")

	// the corrupt file is left in place for inspection
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(contents))
}

func TestRenderStatus(t *testing.T) {
	code := 86
	report := StatusReport{
		Workers: []WorkerStatus{
			{
				WorkerState: WorkerState{WorkerId: 0, Pid: 1234, Range: worker.Range{Start: 1, End: 4}},
				Alive:       true,
			},
			{
				WorkerState: WorkerState{WorkerId: 1, Pid: 1235, Range: worker.Range{Start: 5, End: 7}, ReturnCode: &code},
				Alive:       false,
			},
		},
		StatusCounts: map[string]int64{
			metricstore.StatusCompleted: 7,
			metricstore.StatusPartial:   2,
			"legacy":                    1,
		},
	}

	rendered := RenderStatus(report)
	require.Contains(t, rendered, "1234")
	require.Contains(t, rendered, "1-4")
	require.Contains(t, rendered, "completed")
	require.Contains(t, rendered, "7")
	require.Contains(t, rendered, "legacy")
	require.Contains(t, rendered, "10")
	// the exited worker's return code shows in the fleet table
	require.Contains(t, rendered, "86")
}
