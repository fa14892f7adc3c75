package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/juju/errors"

	"migration-harness/internal/model"
)

const runsPrefix = "/api/v1/runs/"

// RunSource is the read side of the tracking store.
type RunSource interface {
	ListRuns() ([]model.RunRecord, error)
	GetRun(runID string) (model.RunRecord, error)
	GetStages(runID string) ([]model.StageRecord, error)
	GetErrors(runID string) ([]model.ErrorRecord, error)
	GetReport(runID string) (*model.RunReport, error)
}

// RunHandler serves harness run status.
type RunHandler struct {
	source RunSource
}

// NewRunHandler creates handlers reading from source.
func NewRunHandler(source RunSource) *RunHandler {
	return &RunHandler{source: source}
}

// ListRuns retrieves all harness runs
// @Summary List runs
// @Description Get all harness runs with their current status, newest first
// @Tags runs
// @Produce json
// @Success 200 {array} model.RunRecord "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.source.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// GetRun retrieves a specific run
// @Summary Get run
// @Description Retrieve the status and configuration of a harness run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunRecord "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runID(w, r, "")
	if !ok {
		return
	}
	run, err := h.source.GetRun(runID)
	if err != nil {
		writeError(w, err, "Failed to fetch run")
		return
	}
	writeJSON(w, run)
}

// GetRunStages retrieves the stage progress of a run
// @Summary Get run stages
// @Description Retrieve every stage transition of a harness run, in order
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run stages"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/stages [get]
func (h *RunHandler) GetRunStages(w http.ResponseWriter, r *http.Request) {
	runID, ok := runID(w, r, "/stages")
	if !ok {
		return
	}
	stages, err := h.source.GetStages(runID)
	if err != nil {
		writeError(w, err, "Failed to retrieve stages")
		return
	}
	writeJSON(w, map[string]interface{}{
		"run_id": runID,
		"stages": stages,
		"count":  len(stages),
	})
}

// GetRunErrors retrieves errors of a run
// @Summary Get run errors
// @Description Retrieve all errors recorded during a harness run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/errors [get]
func (h *RunHandler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runID(w, r, "/errors")
	if !ok {
		return
	}
	errs, err := h.source.GetErrors(runID)
	if err != nil {
		writeError(w, err, "Failed to retrieve errors")
		return
	}
	writeJSON(w, map[string]interface{}{
		"run_id": runID,
		"errors": errs,
		"count":  len(errs),
	})
}

// GetRunReport retrieves the verification report of a run
// @Summary Get run report
// @Description Retrieve the document counts and index listings taken between the two script phases
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunReport "Verification report"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run or report not found"
// @Router /runs/{id}/report [get]
func (h *RunHandler) GetRunReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := runID(w, r, "/report")
	if !ok {
		return
	}
	report, err := h.source.GetReport(runID)
	if err != nil {
		writeError(w, err, "Failed to retrieve report")
		return
	}
	writeJSON(w, report)
}

// runID extracts the run id between the runs prefix and suffix.
func runID(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := r.URL.Path
	if !strings.HasPrefix(path, runsPrefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}
	id := path[len(runsPrefix) : len(path)-len(suffix)]
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, errors.NotFound) {
		http.Error(w, "Not found: "+err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
