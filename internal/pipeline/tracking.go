package pipeline

import (
	"sync"
	"time"

	"migration-harness/internal/logger"
	"migration-harness/internal/model"
)

// Tracker persists run progress.
type Tracker interface {
	StartRun(runID string, config []byte) error
	UpdateRunStatus(runID, status string) error
	SaveStage(runID string, stage model.StageRecord) error
	SaveRunError(runID string, err error) error
	SaveReport(runID string, report *model.RunReport) error
}

// NopTracker discards everything.
type NopTracker struct{}

func (NopTracker) StartRun(string, []byte) error { return nil }
func (NopTracker) UpdateRunStatus(string, string) error { return nil }
func (NopTracker) SaveStage(string, model.StageRecord) error { return nil }
func (NopTracker) SaveRunError(string, error) error { return nil }
func (NopTracker) SaveReport(string, *model.RunReport) error { return nil }

// RunTracker follows one run: it keeps the stage history in memory and
// forwards every change to the Tracker. Persistence failures are logged
// and otherwise ignored.
type RunTracker struct {
	RunID string

	store Tracker
	log   *logger.Logger

	mu     sync.RWMutex
	status string
	stages []model.StageRecord
	errs   []model.ErrorRecord
	report *model.RunReport
}

// NewRunTracker creates a tracker for runID.
func NewRunTracker(runID string, store Tracker, log *logger.Logger) *RunTracker {
	if store == nil {
		store = NopTracker{}
	}
	return &RunTracker{RunID: runID, store: store, log: log}
}

// Start records the run and its configuration.
func (rt *RunTracker) Start(config []byte) {
	rt.mu.Lock()
	rt.status = model.StatusRunning
	rt.mu.Unlock()
	rt.check("start run", rt.store.StartRun(rt.RunID, config))
}

// StartStage marks the start of a stage.
func (rt *RunTracker) StartStage(stage model.Stage) {
	rec := model.StageRecord{Stage: stage, Status: model.StageStarted, StartedAt: time.Now().UTC()}
	rt.mu.Lock()
	rt.stages = append(rt.stages, rec)
	rt.mu.Unlock()
	rt.check("save stage", rt.store.SaveStage(rt.RunID, rec))
}

// EndStage marks the end of the most recent run of stage.
func (rt *RunTracker) EndStage(stage model.Stage, detail string) {
	rt.finish(stage, model.StageCompleted, detail)
}

// FailStage marks stage as failed and records err.
func (rt *RunTracker) FailStage(stage model.Stage, err error) {
	rt.finish(stage, model.StageErrored, err.Error())
	rt.mu.Lock()
	rt.errs = append(rt.errs, model.ErrorRecord{Message: err.Error(), CreatedAt: time.Now().UTC()})
	rt.mu.Unlock()
	rt.check("save error", rt.store.SaveRunError(rt.RunID, err))
}

func (rt *RunTracker) finish(stage model.Stage, status, detail string) {
	now := time.Now().UTC()
	rt.mu.Lock()
	var rec model.StageRecord
	found := false
	for i := len(rt.stages) - 1; i >= 0; i-- {
		if rt.stages[i].Stage == stage {
			rt.stages[i].Status = status
			rt.stages[i].FinishedAt = &now
			rt.stages[i].Detail = detail
			rec = rt.stages[i]
			found = true
			break
		}
	}
	if !found {
		rec = model.StageRecord{Stage: stage, Status: status, StartedAt: now, FinishedAt: &now, Detail: detail}
		rt.stages = append(rt.stages, rec)
	}
	rt.mu.Unlock()
	rt.check("save stage", rt.store.SaveStage(rt.RunID, rec))
}

// SetStatus updates the run status.
func (rt *RunTracker) SetStatus(status string) {
	rt.mu.Lock()
	rt.status = status
	rt.mu.Unlock()
	rt.check("update status", rt.store.UpdateRunStatus(rt.RunID, status))
}

// SetReport keeps the verification report with the run.
func (rt *RunTracker) SetReport(report *model.RunReport) {
	rt.mu.Lock()
	rt.report = report
	rt.mu.Unlock()
	rt.check("save report", rt.store.SaveReport(rt.RunID, report))
}

// Status returns the current run status.
func (rt *RunTracker) Status() string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.status
}

// Stages returns a copy of the stage history.
func (rt *RunTracker) Stages() []model.StageRecord {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]model.StageRecord, len(rt.stages))
	copy(out, rt.stages)
	return out
}

// Errors returns a copy of the recorded errors.
func (rt *RunTracker) Errors() []model.ErrorRecord {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]model.ErrorRecord, len(rt.errs))
	copy(out, rt.errs)
	return out
}

// Report returns the verification report, if one was taken.
func (rt *RunTracker) Report() *model.RunReport {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.report
}

func (rt *RunTracker) check(op string, err error) {
	if err != nil {
		rt.log.WithError(err).WithField("run", rt.RunID).Warnf("Tracking: %s failed", op)
	}
}
