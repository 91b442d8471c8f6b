package handlers

import (
	"net/http"
	"strconv"

	"coldchain-dispatch-service/internal/api/dto"
	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
	"coldchain-dispatch-service/internal/worker"
)

// JobHandler serves job status, listing, cancellation and the violations
// report.
type JobHandler struct {
	Jobs    ports.JobRepository
	Cancels *worker.Cancels
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Get(r.Context(), r.PathValue("job_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toJobStatus(job))
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := ports.JobFilter{PlanDate: q.Get("plan_date"), Limit: 20}
	if f.PlanDate != "" {
		if _, err := parsePlanDate(f.PlanDate); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if s := q.Get("status"); s != "" {
		state := domain.JobState(s)
		if !validJobState(state) {
			writeError(w, r, domain.Ef(domain.KindValidation, "unknown job status %q", s))
			return
		}
		f.State = state
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 100 {
			writeError(w, r, domain.E(domain.KindValidation, "limit must be between 1 and 100"))
			return
		}
		f.Limit = n
	}

	jobs, err := h.Jobs.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := dto.JobListResponse{Jobs: make([]dto.JobListItem, 0, len(jobs)), Total: len(jobs)}
	for _, job := range jobs {
		item := dto.JobListItem{
			JobID:       job.ID,
			Status:      string(job.State),
			Progress:    job.Progress,
			PlanDate:    job.PlanDate,
			CreatedAt:   job.CreatedAt,
			CompletedAt: job.FinishedAt,
		}
		if job.Summary != nil {
			item.RoutesCreated = job.Summary.VehiclesUsed
		}
		res.Jobs = append(res.Jobs, item)
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Cancel stops a queued or running job. A running solver is signalled through
// its cancel registry entry and settles asynchronously; a queued job is failed
// directly.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("job_id")

	job, err := h.Jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if job.State.Terminal() {
		writeError(w, r, domain.Ef(domain.KindConflict, "cannot cancel a %s job", job.State))
		return
	}

	if h.Cancels.Cancel(id, domain.E(domain.KindCancelled, "cancelled by operator")) {
		writeJSON(w, r, http.StatusOK, dto.CancelResponse{
			JobID:   id,
			Status:  string(domain.JobRunning),
			Message: "cancellation signalled; the job will settle as FAILED/CANCELLED",
		})
		return
	}

	ok, err := h.Jobs.MarkFailed(r.Context(), id, domain.KindCancelled, "cancelled by operator", nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, domain.E(domain.KindConflict, "job finished before it could be cancelled"))
		return
	}

	writeJSON(w, r, http.StatusOK, dto.CancelResponse{
		JobID:   id,
		Status:  string(domain.JobFailed),
		Message: "job cancelled",
	})
}

func (h *JobHandler) Violations(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Get(r.Context(), r.PathValue("job_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := dto.ViolationsResponse{
		JobID:                 job.ID,
		TemperatureViolations: []domain.TemperatureViolation{},
		UnassignedShipments:   []domain.UnassignedShipment{},
	}
	if job.Violations != nil {
		if job.Violations.TemperatureViolations != nil {
			res.TemperatureViolations = job.Violations.TemperatureViolations
		}
		if job.Violations.UnassignedShipments != nil {
			res.UnassignedShipments = job.Violations.UnassignedShipments
		}
	}
	res.Summary = dto.ViolationsSummary{
		TotalTempViolations: len(res.TemperatureViolations),
		TotalUnassigned:     len(res.UnassignedShipments),
	}

	writeJSON(w, r, http.StatusOK, res)
}

func toJobStatus(job *domain.Job) dto.JobStatusResponse {
	var dur *float64
	if job.StartedAt != nil && job.FinishedAt != nil {
		d := job.FinishedAt.Sub(*job.StartedAt).Seconds()
		dur = &d
	}
	return dto.JobStatusResponse{
		JobID:           job.ID,
		Status:          string(job.State),
		Progress:        job.Progress,
		PlanDate:        job.PlanDate,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.FinishedAt,
		DurationSeconds: dur,
		ResultSummary:   job.Summary,
		RouteIDs:        job.RouteIDs,
		ErrorKind:       job.ErrorKind,
		ErrorMessage:    job.ErrorMessage,
	}
}

func validJobState(s domain.JobState) bool {
	switch s {
	case domain.JobPending, domain.JobRunning, domain.JobCompleted, domain.JobFailed:
		return true
	}
	return false
}
