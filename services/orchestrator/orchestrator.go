// Package orchestrator manages a fleet of worker processes: spawning
// one per id partition, tracking them through a state file and
// reporting fleet plus database progress.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"shopmetrics-backend/lib/datenorm"
	"shopmetrics-backend/services/metricstore"
	"shopmetrics-backend/services/worker"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/orchestrator")

type Config struct {
	// path to the shopworker binary
	WorkerBinary string `json:"worker_binary"`
	NumWorkers   int    `json:"num_workers"`
	// id span to cover; EndID 0 means "up to the highest shop id"
	StartID int64 `json:"start_id"`
	EndID   int64 `json:"end_id"`

	StateFile string `json:"state_file"`
	LogDir    string `json:"log_dir"`

	// worker config file forwarded to every spawned process
	WorkerConfig string `json:"worker_config"`

	Email *EmailConfig `json:"email"`
}

type Orchestrator struct {
	cfg   Config
	store metricstore.Store

	// process handles for workers spawned by this orchestrator
	// instance. Exit codes are only observable from the parent, so
	// Monitor covers these and nothing else.
	procs map[int]*exec.Cmd
}

func New(cfg Config, store metricstore.Store) *Orchestrator {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.StartID <= 0 {
		cfg.StartID = 1
	}
	if cfg.StateFile == "" {
		cfg.StateFile = "orchestrator.state.json"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	return &Orchestrator{cfg: cfg, store: store}
}

// Start partitions the id span and spawns one worker process per
// non-empty partition. Starting while a tracked fleet is still alive
// is refused.
func (o *Orchestrator) Start(ctx context.Context) (State, error) {
	ctx, span := tracer.Start(ctx, "orchestrator:Start")
	defer span.End()

	prev, err := LoadState(o.cfg.StateFile)
	if err != nil && !os.IsNotExist(err) {
		// a corrupt state file may still describe a running fleet,
		// refuse to clobber it
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load state")
		return State{}, err
	}
	for _, w := range prev.Workers {
		alive, _ := process.PidExistsWithContext(ctx, int32(w.Pid))
		if alive {
			return State{}, fmt.Errorf("worker %d (pid %d) is still running, stop the fleet first", w.WorkerId, w.Pid)
		}
	}

	endID := o.cfg.EndID
	if endID <= 0 {
		maxID, err := o.store.MaxShopID(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to look up max shop id")
			return State{}, err
		}
		endID = maxID
	}
	span.SetAttributes(
		attribute.Int64("start_id", o.cfg.StartID),
		attribute.Int64("end_id", endID),
		attribute.Int("num_workers", o.cfg.NumWorkers),
	)

	if err := os.MkdirAll(o.cfg.LogDir, 0o755); err != nil {
		return State{}, err
	}

	ranges := worker.Partition(o.cfg.StartID, endID, o.cfg.NumWorkers)
	state := State{StartedAt: datenorm.NormalizeTime(time.Now())}
	o.procs = map[int]*exec.Cmd{}

	for i, rng := range ranges {
		if rng.Empty() {
			slog.InfoContext(ctx, "partition is empty, not spawning a worker", "worker_id", i)
			continue
		}

		ws, err := o.spawn(ctx, i, rng)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to spawn worker")
			// tear down what already started so a failed start is clean
			for _, started := range state.Workers {
				terminate(ctx, started.Pid, time.Second*5)
			}
			return State{}, err
		}
		state.Workers = append(state.Workers, ws)
	}

	if err := SaveState(o.cfg.StateFile, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save state")
		return State{}, err
	}

	slog.InfoContext(ctx, "fleet started", "workers", len(state.Workers))
	return state, nil
}

func (o *Orchestrator) spawn(ctx context.Context, workerId int, rng worker.Range) (WorkerState, error) {
	args := []string{
		"--worker-id", strconv.Itoa(workerId),
		"--start-id", strconv.FormatInt(rng.Start, 10),
		"--end-id", strconv.FormatInt(rng.End, 10),
	}
	if o.cfg.WorkerConfig != "" {
		args = append(args, "--config", o.cfg.WorkerConfig)
	}

	logPath := filepath.Join(o.cfg.LogDir, fmt.Sprintf("worker-%d.log", workerId))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return WorkerState{}, err
	}

	cmd := exec.Command(o.cfg.WorkerBinary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return WorkerState{}, fmt.Errorf("spawning worker %d: %w", workerId, err)
	}
	logFile.Close()

	o.procs[workerId] = cmd

	slog.InfoContext(
		ctx, "worker spawned",
		"worker_id", workerId,
		"pid", cmd.Process.Pid,
		"start_id", rng.Start,
		"end_id", rng.End,
	)
	return WorkerState{
		WorkerId:  workerId,
		Pid:       cmd.Process.Pid,
		Range:     rng,
		StartedAt: datenorm.NormalizeTime(time.Now()),
	}, nil
}

// Monitor blocks until every worker spawned by this process exits,
// recording each exit code and end time into the state file as it
// happens. Orchestrators that did not spawn the fleet have no process
// handles and return immediately.
func (o *Orchestrator) Monitor(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "orchestrator:Monitor")
	defer span.End()

	type exit struct {
		workerId int
		code     int
	}
	exits := make(chan exit, len(o.procs))
	for workerId, cmd := range o.procs {
		go func(workerId int, cmd *exec.Cmd) {
			err := cmd.Wait()
			code := 0
			if cmd.ProcessState != nil {
				code = cmd.ProcessState.ExitCode()
			} else if err != nil {
				code = -1
			}
			exits <- exit{workerId: workerId, code: code}
		}(workerId, cmd)
	}

	for remaining := len(o.procs); remaining > 0; remaining-- {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-exits:
			if err := o.recordExit(ctx, e.workerId, e.code); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to record worker exit")
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) recordExit(ctx context.Context, workerId int, code int) error {
	state, err := LoadState(o.cfg.StateFile)
	if err != nil {
		return err
	}
	for i := range state.Workers {
		if state.Workers[i].WorkerId != workerId {
			continue
		}
		state.Workers[i].EndedAt = datenorm.NormalizeTime(time.Now())
		state.Workers[i].ReturnCode = &code
	}

	if code == 0 {
		slog.InfoContext(ctx, "worker exited", "worker_id", workerId)
	} else {
		slog.WarnContext(ctx, "worker exited with failure", "worker_id", workerId, "return_code", code)
	}
	return SaveState(o.cfg.StateFile, state)
}

// Stop terminates every tracked worker and removes the state file.
// Workers that already exited are skipped silently.
func (o *Orchestrator) Stop(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "orchestrator:Stop")
	defer span.End()

	state, err := LoadState(o.cfg.StateFile)
	if os.IsNotExist(err) {
		slog.InfoContext(ctx, "no state file, nothing to stop")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load state")
		return err
	}

	for _, w := range state.Workers {
		if err := terminate(ctx, w.Pid, time.Second*15); err != nil {
			slog.WarnContext(ctx, "failed to stop worker", "worker_id", w.WorkerId, "pid", w.Pid, "err", err)
			continue
		}
		slog.InfoContext(ctx, "worker stopped", "worker_id", w.WorkerId, "pid", w.Pid)
	}

	return RemoveState(o.cfg.StateFile)
}

// terminate sends SIGTERM and escalates to SIGKILL after the grace
// period.
func terminate(ctx context.Context, pid int, grace time.Duration) error {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		// already gone
		return nil
	}
	if err := proc.TerminateWithContext(ctx); err != nil {
		return err
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		alive, _ := process.PidExistsWithContext(ctx, int32(pid))
		if !alive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return proc.KillWithContext(ctx)
}

// Restart is a Stop followed by a Start.
func (o *Orchestrator) Restart(ctx context.Context) (State, error) {
	if err := o.Stop(ctx); err != nil {
		return State{}, err
	}
	return o.Start(ctx)
}

// WorkerStatus is WorkerState plus liveness.
type WorkerStatus struct {
	WorkerState
	Alive bool
}

// StatusReport combines fleet liveness with database progress.
type StatusReport struct {
	Workers      []WorkerStatus
	StatusCounts map[string]int64
}

// Status inspects the tracked fleet and the shop table. A missing
// state file yields a report with no workers, not an error.
func (o *Orchestrator) Status(ctx context.Context) (StatusReport, error) {
	ctx, span := tracer.Start(ctx, "orchestrator:Status")
	defer span.End()

	var report StatusReport

	state, err := LoadState(o.cfg.StateFile)
	if err != nil && !os.IsNotExist(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load state")
		return StatusReport{}, err
	}
	for _, w := range state.Workers {
		alive, _ := process.PidExistsWithContext(ctx, int32(w.Pid))
		report.Workers = append(report.Workers, WorkerStatus{
			WorkerState: w,
			Alive:       alive,
		})
	}

	counts, err := o.store.StatusCounts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read status counts")
		return StatusReport{}, err
	}
	report.StatusCounts = counts

	return report, nil
}
