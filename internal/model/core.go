package model

// Stage is a state of the pipeline state machine.
type Stage string

const (
	StageInit            Stage = "INIT"
	StageRestoreExport   Stage = "RESTORE_EXPORT"
	StageSkipped         Stage = "SKIPPED"
	StageImport          Stage = "IMPORT"
	StageTransformPhase1 Stage = "TRANSFORM_PHASE1"
	StageReport          Stage = "REPORT"
	StageTransformPhase2 Stage = "TRANSFORM_PHASE2"
	StageExportArtifacts Stage = "EXPORT_ARTIFACTS"
	StageHold            Stage = "HOLD"
	StageTeardown        Stage = "TEARDOWN"
	StageDone            Stage = "DONE"
	StageFailed          Stage = "FAILED"
)

// Run statuses stored by the tracker.
const (
	StatusRunning   = "running"
	StatusHolding   = "holding"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Stage statuses stored by the tracker.
const (
	StageStarted   = "started"
	StageCompleted = "completed"
	StageErrored   = "failed"
)
