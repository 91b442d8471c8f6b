package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/ports"
	"coldchain-dispatch-service/internal/solver"
)

// In-memory doubles for the persistence ports. The fake plan repository
// completes the job the way the real transaction does, including the
// conflict on non-RUNNING jobs.

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*domain.Job)}
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) Get(ctx context.Context, id string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, domain.Ef(domain.KindNotFound, "job %s not found", id)
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) List(ctx context.Context, filter ports.JobFilter) ([]*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Job
	for _, j := range f.jobs {
		if filter.State != "" && j.State != filter.State {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeJobs) MarkRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.State != domain.JobPending {
		return false, nil
	}
	j.State = domain.JobRunning
	j.StartedAt = &startedAt
	return true, nil
}

func (f *fakeJobs) UpdateProgress(ctx context.Context, id string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.State != domain.JobRunning || progress <= j.Progress {
		return nil
	}
	j.Progress = progress
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, id string, kind domain.ErrorKind, message string, violations *domain.ViolationsReport) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.State.Terminal() {
		return false, nil
	}
	now := time.Now()
	j.State = domain.JobFailed
	j.ErrorKind = string(kind)
	j.ErrorMessage = message
	j.Violations = violations
	j.FinishedAt = &now
	return true, nil
}

func (f *fakeJobs) complete(w *ports.PlanWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[w.JobID]
	if !ok || j.State != domain.JobRunning {
		return domain.Ef(domain.KindConflict, "job %s is not running", w.JobID)
	}
	j.State = domain.JobCompleted
	j.Progress = 100
	j.Summary = &w.Summary
	j.Violations = w.Violations
	j.FinishedAt = &w.FinishedAt
	for i := range w.Routes {
		j.RouteIDs = append(j.RouteIDs, int64(i+1))
	}
	return nil
}

func (f *fakeJobs) snapshot(id string) domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

type fakePlans struct {
	mu    sync.Mutex
	jobs  *fakeJobs
	saves []*ports.PlanWrite
}

func (f *fakePlans) SavePlan(ctx context.Context, w *ports.PlanWrite) error {
	if err := f.jobs.complete(w); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, w)
	return nil
}

func (f *fakePlans) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeVehicles struct {
	mu       sync.Mutex
	fleet    []domain.Vehicle
	failures int
	calls    int
}

func (f *fakeVehicles) ListAvailable(ctx context.Context) ([]domain.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return append([]domain.Vehicle(nil), f.fleet...), nil
}

func (f *fakeVehicles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeShipments struct {
	pending []domain.Shipment
}

func (f *fakeShipments) ListPending(ctx context.Context, planDate string) ([]domain.Shipment, error) {
	return append([]domain.Shipment(nil), f.pending...), nil
}

type fakeLabor struct {
	dayMin, weekMin int
}

func (f *fakeLabor) Usage(ctx context.Context, vehicleID int64, planDate string) (int, int, error) {
	return f.dayMin, f.weekMin, nil
}

type chanQueue struct{ ch chan string }

func (q *chanQueue) Enqueue(ctx context.Context, jobID string) error {
	q.ch <- jobID
	return nil
}

func (q *chanQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case id := <-q.ch:
		return id, nil
	}
}

// Fixtures. The near coordinate is ~2.4 km (5 min) from the depot, the far
// one ~45 km (90 min).

var (
	workerDepot   = domain.Coordinates{Lat: 25.033, Lon: 121.565}
	workerNear    = domain.Coordinates{Lat: 25.050, Lon: 121.580}
	workerVeryFar = domain.Coordinates{Lat: 25.4377, Lon: 121.565}
)

func fleetVehicle(id int64) domain.Vehicle {
	return domain.Vehicle{
		ID:                id,
		LicensePlate:      fmt.Sprintf("WRK-%03d", id),
		DriverName:        "B. Driver",
		CapacityWeightKg:  1000,
		CapacityVolumeM3:  10,
		Insulation:        domain.InsulationStandard,
		Door:              domain.DoorRoll,
		HasCurtain:        true,
		CoolingRatePerMin: -2.5,
		Status:            domain.VehicleAvailable,
	}
}

func pendingShipment(id int64, coord domain.Coordinates) domain.Shipment {
	return domain.Shipment{
		ID:             id,
		CustomerName:   "Customer",
		Address:        "2 Dispatch Way",
		Coord:          coord,
		WeightKg:       100,
		VolumeM3:       1,
		Windows:        []domain.TimeWindow{{StartMin: 480, EndMin: 600}},
		ServiceMinutes: 15,
		TempCeilingC:   5,
		SLA:            domain.SLAStrict,
		Priority:       50,
		Status:         domain.ShipmentPending,
	}
}

func pendingJob(id string) *domain.Job {
	return &domain.Job{
		ID:               id,
		PlanDate:         "2026-01-15",
		State:            domain.JobPending,
		DepotLat:         workerDepot.Lat,
		DepotLon:         workerDepot.Lon,
		DepartureMin:     480,
		AmbientTempC:     30,
		InitialCargoTemp: -5,
		TimeLimitSeconds: 60,
		Strategy:         domain.StrategyMinimizeVehicles,
		CreatedAt:        time.Now(),
	}
}

func workerConfig() Config {
	return Config{
		Params: solver.Params{
			AverageSpeedKmh:      30,
			VehicleFixedCost:     50000,
			TempViolationPenalty: 100000,
			DistanceCostPerKm:    10,
			InfeasibleCost:       10_000_000,
			SpanCoeff:            10,
		},
		GraceSeconds:     30,
		ProgressInterval: 50 * time.Millisecond,
		DailyLimitMin:    600,
		WeeklyLimitMin:   2400,
	}
}

type harness struct {
	jobs      *fakeJobs
	plans     *fakePlans
	vehicles  *fakeVehicles
	shipments *fakeShipments
	cancels   *Cancels
	runner    *Runner
}

func newHarness(fleet []domain.Vehicle, pending []domain.Shipment, cfg Config) *harness {
	h := &harness{
		jobs:      newFakeJobs(),
		vehicles:  &fakeVehicles{fleet: fleet},
		shipments: &fakeShipments{pending: pending},
		cancels:   NewCancels(),
	}
	h.plans = &fakePlans{jobs: h.jobs}
	h.runner = NewRunner(h.jobs, h.plans, h.vehicles, h.shipments, &fakeLabor{}, h.cancels, cfg, zap.NewNop())
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunnerCompletesJob(t *testing.T) {
	h := newHarness(
		[]domain.Vehicle{fleetVehicle(1)},
		[]domain.Shipment{pendingShipment(1, workerNear)},
		workerConfig(),
	)
	job := pendingJob("job-complete")
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobCompleted {
		t.Fatalf("state: want COMPLETED, got %s (%s: %s)", got.State, got.ErrorKind, got.ErrorMessage)
	}
	if got.Progress != 100 {
		t.Fatalf("progress: want 100, got %d", got.Progress)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Fatal("started/finished timestamps must be set")
	}
	if got.Summary == nil || got.Summary.ShipmentsAssigned != 1 {
		t.Fatalf("summary: got %+v", got.Summary)
	}
	if h.plans.count() != 1 {
		t.Fatalf("want 1 plan write, got %d", h.plans.count())
	}
	if w := h.plans.saves[0]; len(w.Routes) != 1 || w.Routes[0].StopCount != 1 {
		t.Fatalf("plan write routes: got %+v", h.plans.saves[0].Routes)
	}
}

func TestRunnerSkipsNonPendingJob(t *testing.T) {
	h := newHarness([]domain.Vehicle{fleetVehicle(1)}, []domain.Shipment{pendingShipment(1, workerNear)}, workerConfig())
	job := pendingJob("job-taken")
	job.State = domain.JobRunning
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if h.vehicles.callCount() != 0 {
		t.Fatal("a non-pending job must not be re-solved")
	}
}

func TestRunnerFailsStrictTemperatureImpossibility(t *testing.T) {
	hot := fleetVehicle(1)
	hot.Insulation = domain.InsulationBasic
	hot.HasCurtain = false
	hot.CoolingRatePerMin = 0

	s := pendingShipment(3, workerVeryFar)
	s.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 900}}
	s.TempCeilingC = 0

	h := newHarness([]domain.Vehicle{hot}, []domain.Shipment{s}, workerConfig())
	job := pendingJob("job-hot")
	job.AmbientTempC = 40
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobFailed || got.ErrorKind != string(domain.KindInfeasible) {
		t.Fatalf("want FAILED/INFEASIBLE, got %s/%s", got.State, got.ErrorKind)
	}
	if got.Violations == nil || len(got.Violations.TemperatureViolations) != 1 {
		t.Fatalf("violations must carry the temperature breach, got %+v", got.Violations)
	}
	if h.plans.count() != 0 {
		t.Fatal("no plan may be written for an infeasible job")
	}
}

func TestRunnerCompletesAroundStandardExclusion(t *testing.T) {
	hot := fleetVehicle(1)
	hot.Insulation = domain.InsulationBasic
	hot.HasCurtain = false
	hot.CoolingRatePerMin = 0

	s := pendingShipment(3, workerVeryFar)
	s.Windows = []domain.TimeWindow{{StartMin: 480, EndMin: 900}}
	s.TempCeilingC = 0
	s.SLA = domain.SLAStandard

	h := newHarness([]domain.Vehicle{hot}, []domain.Shipment{s}, workerConfig())
	job := pendingJob("job-warm-standard")
	job.AmbientTempC = 40
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobCompleted {
		t.Fatalf("STANDARD exclusions complete with diagnostics, got %s (%s)", got.State, got.ErrorMessage)
	}
	if got.Summary.ShipmentsUnassigned != 1 {
		t.Fatalf("summary should count the exclusion, got %+v", got.Summary)
	}
	if got.Violations == nil || len(got.Violations.UnassignedShipments) != 1 {
		t.Fatalf("violations should list the exclusion, got %+v", got.Violations)
	}
	if len(h.plans.saves[0].Routes) != 0 {
		t.Fatal("no routes expected when the only shipment is excluded")
	}
}

func TestRunnerFailsStrictCapacityDrop(t *testing.T) {
	small := fleetVehicle(1)
	small.CapacityWeightKg = 150

	h := newHarness(
		[]domain.Vehicle{small},
		[]domain.Shipment{pendingShipment(1, workerNear), pendingShipment(2, domain.Coordinates{Lat: 25.052, Lon: 121.582})},
		workerConfig(),
	)
	job := pendingJob("job-tight")
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobFailed || got.ErrorKind != string(domain.KindInfeasible) {
		t.Fatalf("want FAILED/INFEASIBLE, got %s/%s", got.State, got.ErrorKind)
	}
	if got.Violations == nil || len(got.Violations.UnassignedShipments) != 1 {
		t.Fatalf("violations should list the dropped STRICT shipment, got %+v", got.Violations)
	}
}

func TestRunnerCancelMidSolve(t *testing.T) {
	h := newHarness([]domain.Vehicle{fleetVehicle(1)}, []domain.Shipment{pendingShipment(1, workerNear)}, workerConfig())
	h.runner.solve = func(ctx context.Context, m *solver.Model) *solver.Result {
		<-ctx.Done()
		return &solver.Result{Status: solver.StatusTimeout, Routes: make([]solver.VehicleRoute, len(m.Vehicles))}
	}

	job := pendingJob("job-cancel")
	h.jobs.Create(context.Background(), job)

	done := make(chan error, 1)
	go func() { done <- h.runner.Run(context.Background(), job.ID) }()

	waitFor(t, "cancel registration", func() bool {
		return h.cancels.Cancel(job.ID, domain.E(domain.KindCancelled, "cancelled by request"))
	})
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobFailed || got.ErrorKind != string(domain.KindCancelled) {
		t.Fatalf("want FAILED/CANCELLED, got %s/%s", got.State, got.ErrorKind)
	}
	if h.plans.count() != 0 {
		t.Fatal("cancelled jobs must not persist plans")
	}
}

func TestRunnerRetriesInternalErrorOnce(t *testing.T) {
	h := newHarness([]domain.Vehicle{fleetVehicle(1)}, []domain.Shipment{pendingShipment(1, workerNear)}, workerConfig())
	h.vehicles.failures = 1

	job := pendingJob("job-flaky")
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := h.jobs.snapshot(job.ID); got.State != domain.JobCompleted {
		t.Fatalf("retry should recover a transient failure, got %s", got.State)
	}
	if h.vehicles.callCount() != 2 {
		t.Fatalf("want exactly one retry (2 calls), got %d", h.vehicles.callCount())
	}
}

func TestRunnerFailsWhenRetryExhausted(t *testing.T) {
	h := newHarness([]domain.Vehicle{fleetVehicle(1)}, []domain.Shipment{pendingShipment(1, workerNear)}, workerConfig())
	h.vehicles.failures = 2

	job := pendingJob("job-down")
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err == nil {
		t.Fatal("want an infrastructure error surfaced to the pool")
	}
	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobFailed || got.ErrorKind != string(domain.KindInternal) {
		t.Fatalf("want FAILED/INTERNAL_ERROR, got %s/%s", got.State, got.ErrorKind)
	}
}

func TestRunnerTimeoutWithoutSolution(t *testing.T) {
	h := newHarness([]domain.Vehicle{fleetVehicle(1)}, []domain.Shipment{pendingShipment(1, workerNear)}, workerConfig())
	h.runner.solve = func(ctx context.Context, m *solver.Model) *solver.Result {
		return &solver.Result{Status: solver.StatusTimeout, Routes: make([]solver.VehicleRoute, len(m.Vehicles))}
	}

	job := pendingJob("job-slow")
	h.jobs.Create(context.Background(), job)

	if err := h.runner.Run(context.Background(), job.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := h.jobs.snapshot(job.ID)
	if got.State != domain.JobFailed || got.ErrorKind != string(domain.KindSolverTimeout) {
		t.Fatalf("want FAILED/SOLVER_TIMEOUT, got %s/%s", got.State, got.ErrorKind)
	}
}

func TestPoolRunsQueuedJobs(t *testing.T) {
	h := newHarness([]domain.Vehicle{fleetVehicle(1)}, []domain.Shipment{pendingShipment(1, workerNear)}, workerConfig())
	queue := &chanQueue{ch: make(chan string, 8)}

	ids := []string{"pool-1", "pool-2", "pool-3"}
	for _, id := range ids {
		h.jobs.Create(context.Background(), pendingJob(id))
		queue.ch <- id
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(queue, h.runner, 2, zap.NewNop())
	pool.Start(ctx)

	waitFor(t, "all jobs terminal", func() bool {
		for _, id := range ids {
			if !h.jobs.snapshot(id).State.Terminal() {
				return false
			}
		}
		return true
	})
	cancel()
	pool.Wait()

	for _, id := range ids {
		if got := h.jobs.snapshot(id); got.State != domain.JobCompleted {
			t.Fatalf("job %s: want COMPLETED, got %s", id, got.State)
		}
	}
}

func TestSweeperFailsStaleRunningJobs(t *testing.T) {
	jobs := newFakeJobs()

	stale := pendingJob("stale")
	staleStart := time.Now().Add(-10 * time.Minute)
	stale.State = domain.JobRunning
	stale.StartedAt = &staleStart
	stale.TimeLimitSeconds = 300
	jobs.Create(context.Background(), stale)

	fresh := pendingJob("fresh")
	freshStart := time.Now().Add(-time.Minute)
	fresh.State = domain.JobRunning
	fresh.StartedAt = &freshStart
	fresh.TimeLimitSeconds = 300
	jobs.Create(context.Background(), fresh)

	NewStaleJobSweeper(jobs, 30, zap.NewNop()).Execute()

	if got := jobs.snapshot("stale"); got.State != domain.JobFailed || got.ErrorKind != string(domain.KindInternal) {
		t.Fatalf("stale job: want FAILED/INTERNAL_ERROR, got %s/%s", got.State, got.ErrorKind)
	}
	if got := jobs.snapshot("fresh"); got.State != domain.JobRunning {
		t.Fatalf("fresh job must be left alone, got %s", got.State)
	}
}

func TestEstimateProgress(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		limit   int
		want    int
	}{
		{0, 300, 0},
		{30 * time.Second, 300, 9},
		{150 * time.Second, 300, 47},
		{300 * time.Second, 300, 95},
		{600 * time.Second, 300, 95},
		{10 * time.Second, 0, 95},
	}
	for _, c := range cases {
		if got := estimateProgress(c.elapsed, c.limit); got != c.want {
			t.Fatalf("estimateProgress(%v, %d): want %d, got %d", c.elapsed, c.limit, c.want, got)
		}
	}
}
