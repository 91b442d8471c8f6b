package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/platform/obs"
	"coldchain-dispatch-service/internal/ports"
	"coldchain-dispatch-service/internal/solver"
)

// SolveFunc is the search entry point; tests substitute it to control solver
// behavior without real search time.
type SolveFunc func(ctx context.Context, m *solver.Model) *solver.Result

// Config is the solve-time configuration shared by all runs.
type Config struct {
	Params solver.Params
	// GraceSeconds pads the job's time limit for snapshot loading and plan
	// persistence before the run is abandoned outright.
	GraceSeconds     int
	ProgressInterval time.Duration
	DailyLimitMin    int
	WeeklyLimitMin   int
}

// Runner executes one optimization job end to end: claim, snapshot, solve,
// assemble, persist.
type Runner struct {
	jobs      ports.JobRepository
	plans     ports.PlanRepository
	vehicles  ports.VehicleRepository
	shipments ports.ShipmentRepository
	labor     ports.LaborRepository
	cancels   *Cancels
	cfg       Config
	log       *zap.Logger

	solve SolveFunc
	now   func() time.Time
}

func NewRunner(
	jobs ports.JobRepository,
	plans ports.PlanRepository,
	vehicles ports.VehicleRepository,
	shipments ports.ShipmentRepository,
	labor ports.LaborRepository,
	cancels *Cancels,
	cfg Config,
	log *zap.Logger,
) *Runner {
	if cfg.GraceSeconds <= 0 {
		cfg.GraceSeconds = 30
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 10 * time.Second
	}
	return &Runner{
		jobs:      jobs,
		plans:     plans,
		vehicles:  vehicles,
		shipments: shipments,
		labor:     labor,
		cancels:   cancels,
		cfg:       cfg,
		log:       log,
		solve:     solver.Solve,
		now:       time.Now,
	}
}

// Run processes one job id from the queue. Errors that terminate the job are
// recorded on the job row; the returned error reports only infrastructure
// failures the caller may want to log.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	startedAt := r.now()
	ok, err := r.jobs.MarkRunning(ctx, jobID, startedAt)
	if err != nil {
		return fmt.Errorf("mark running %s: %w", jobID, err)
	}
	if !ok {
		// Duplicate delivery or cancelled while queued.
		r.log.Info("job not pending, skipping", zap.String("job_id", jobID))
		return nil
	}

	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		r.fail(jobID, domain.KindInternal, fmt.Sprintf("load job: %v", err), nil)
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	// The run context carries the user-cancel hook and a hard deadline a
	// grace period past the solver budget.
	cancelCtx, cancelCause := context.WithCancelCause(ctx)
	r.cancels.Register(jobID, cancelCause)
	defer r.cancels.Release(jobID)
	defer cancelCause(nil)

	runCtx, cancel := context.WithTimeout(cancelCtx, time.Duration(job.TimeLimitSeconds+r.cfg.GraceSeconds)*time.Second)
	defer cancel()

	go r.sampleProgress(runCtx, jobID, startedAt, job.TimeLimitSeconds)

	r.log.Info("job started",
		zap.String("job_id", jobID),
		zap.String("plan_date", job.PlanDate),
		zap.Int("time_limit_s", job.TimeLimitSeconds),
		zap.String("strategy", string(job.Strategy)))

	violations, err := r.attempt(runCtx, job, startedAt)
	if err != nil && domain.KindOf(err) == domain.KindInternal {
		r.log.Warn("attempt failed, retrying once", zap.String("job_id", jobID), zap.Error(err))
		violations, err = r.attempt(runCtx, job, startedAt)
	}
	if err == nil {
		r.log.Info("job completed", zap.String("job_id", jobID),
			zap.Duration("elapsed", r.now().Sub(startedAt)))
		return nil
	}

	kind := domain.KindOf(err)
	switch kind {
	case domain.KindConflict:
		// A cancel or sweep won the terminal-state race; their verdict
		// stands.
		r.log.Info("job finished elsewhere", zap.String("job_id", jobID), zap.Error(err))
		return nil
	case domain.KindCancelled, domain.KindInfeasible, domain.KindSolverTimeout, domain.KindPreconditionFailure:
		r.fail(jobID, kind, err.Error(), violations)
		return nil
	default:
		r.fail(jobID, domain.KindInternal, err.Error(), violations)
		return fmt.Errorf("job %s: %w", jobID, err)
	}
}

// attempt is one full pass: snapshot, model, solve, assemble, persist. The
// returned violations accompany a terminal error onto the job record.
func (r *Runner) attempt(ctx context.Context, job *domain.Job, startedAt time.Time) (*domain.ViolationsReport, error) {
	vehicles, err := r.vehicles.ListAvailable(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "load vehicles", err)
	}
	shipments, err := r.shipments.ListPending(ctx, job.PlanDate)
	if err != nil {
		return nil, domain.Wrap(domain.KindInternal, "load shipments", err)
	}

	laborCaps, err := r.laborCaps(ctx, vehicles, job.PlanDate)
	if err != nil {
		return nil, err
	}

	model, err := solver.Build(solver.BuildInput{
		DepotCoord:    domain.Coordinates{Lat: job.DepotLat, Lon: job.DepotLon},
		DepotOpenMin:  0,
		DepotCloseMin: 24*60 - 1,
		Vehicles:      vehicles,
		Shipments:     shipments,
		DepartureMin:  job.DepartureMin,
		AmbientC:      job.AmbientTempC,
		InitialTempC:  job.InitialCargoTemp,
		Strategy:      job.Strategy,
		LaborCapMin:   laborCaps,
	}, r.cfg.Params)
	if err != nil {
		return nil, err
	}

	if solver.StrictImpossible(model.Excluded) {
		report := solver.ExclusionReport(model.Excluded)
		return &report, domain.E(domain.KindInfeasible,
			"a STRICT shipment cannot be kept under its temperature ceiling by any vehicle")
	}

	solveCtx, cancelSolve := context.WithTimeout(ctx, time.Duration(job.TimeLimitSeconds)*time.Second)
	defer cancelSolve()

	var solveErr error
	stop := obs.Time(ctx, "solver.solve")
	res := r.solve(solveCtx, model)
	stop(&solveErr)

	// A user cancel outranks whatever partial result the search produced.
	if cause := context.Cause(ctx); cause != nil && domain.KindOf(cause) == domain.KindCancelled {
		return nil, cause
	}

	solveSeconds := r.now().Sub(startedAt).Seconds()
	plan := solver.Assemble(solver.AssembleInput{
		Model:             model,
		Result:            res,
		JobID:             job.ID,
		PlanDate:          job.PlanDate,
		VehiclesAvailable: len(vehicles),
		SolveSeconds:      solveSeconds,
	})

	switch {
	case res.Status == solver.StatusTimeout:
		return nil, domain.E(domain.KindSolverTimeout, "time limit reached before any solution was found")
	case res.Status == solver.StatusInfeasible:
		return &plan.Violations, domain.E(domain.KindInfeasible, "one or more STRICT shipments could not be served")
	case plan.StrictBreach:
		return &plan.Violations, domain.E(domain.KindInfeasible,
			"predicted temperature exceeds a STRICT shipment's ceiling")
	}

	write := &ports.PlanWrite{
		JobID:        job.ID,
		FinishedAt:   r.now(),
		Summary:      plan.Summary,
		Routes:       plan.Routes,
		LaborMinutes: plan.LaborMinutes,
	}
	if !plan.Violations.Empty() {
		write.Violations = &plan.Violations
	}
	if err := r.plans.SavePlan(ctx, write); err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			return nil, err
		}
		return nil, domain.Wrap(domain.KindInternal, "persist plan", err)
	}
	return nil, nil
}

// laborCaps computes each vehicle's remaining duty minutes for the plan date
// when the labor dimension is enabled.
func (r *Runner) laborCaps(ctx context.Context, vehicles []domain.Vehicle, planDate string) (map[int64]int, error) {
	if !r.cfg.Params.EnableLabor || r.labor == nil {
		return nil, nil
	}
	caps := make(map[int64]int, len(vehicles))
	for _, v := range vehicles {
		dayMin, weekMin, err := r.labor.Usage(ctx, v.ID, planDate)
		if err != nil {
			return nil, domain.Wrap(domain.KindInternal, "load labor usage", err)
		}
		remaining := r.cfg.DailyLimitMin - dayMin
		if weekly := r.cfg.WeeklyLimitMin - weekMin; weekly < remaining {
			remaining = weekly
		}
		if remaining < 0 {
			remaining = 0
		}
		caps[v.ID] = remaining
	}
	return caps, nil
}

func (r *Runner) fail(jobID string, kind domain.ErrorKind, message string, violations *domain.ViolationsReport) {
	// The run context may already be cancelled or past its deadline; the
	// terminal write must still land.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ok, err := r.jobs.MarkFailed(ctx, jobID, kind, message, violations)
	if err != nil {
		r.log.Error("failed to record job failure",
			zap.String("job_id", jobID), zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	if !ok {
		r.log.Info("job already terminal", zap.String("job_id", jobID))
		return
	}
	r.log.Warn("job failed",
		zap.String("job_id", jobID),
		zap.String("kind", string(kind)),
		zap.String("reason", message))
}
