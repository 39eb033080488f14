package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"shopmetrics-backend/services/worker"
)

// WorkerState describes one spawned worker process. EndedAt and
// ReturnCode stay empty until the monitor observes the exit.
type WorkerState struct {
	WorkerId   int          `json:"worker_id"`
	Pid        int          `json:"pid"`
	Range      worker.Range `json:"range"`
	StartedAt  string       `json:"started_at"`
	EndedAt    string       `json:"ended_at,omitempty"`
	ReturnCode *int         `json:"return_code,omitempty"`
}

// State is the snapshot the orchestrator persists between invocations.
// Stop and status run in fresh processes, the state file is the only
// thing connecting them to a running fleet.
type State struct {
	StartedAt string        `json:"started_at"`
	Workers   []WorkerState `json:"workers"`
}

// SaveState writes the snapshot atomically, a crash mid-write must
// never leave a half-written state file behind.
func SaveState(path string, state State) error {
	serialized, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(serialized); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func LoadState(path string) (State, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(contents, &state); err != nil {
		return State{}, fmt.Errorf("corrupt state file %s: %w", path, err)
	}
	return state, nil
}

func RemoveState(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
