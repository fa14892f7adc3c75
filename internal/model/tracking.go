package model

import "time"

// RunRecord is a pipeline run as persisted by the tracking store.
// @Description Pipeline run summary
type RunRecord struct {
	ID        string    `json:"id" example:"6b1f5c0e-3d0c-4a57-9a39-0d6a2b7f1c11"`
	Config    string    `json:"config,omitempty"`
	Status    string    `json:"status" example:"holding"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StageRecord is one stage transition of a run.
// @Description Stage progress of a pipeline run
type StageRecord struct {
	Stage      Stage      `json:"stage" example:"IMPORT"`
	Status     string     `json:"status" example:"completed"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Detail     string     `json:"detail,omitempty"`
}

// ErrorRecord is an error recorded for a run.
type ErrorRecord struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
