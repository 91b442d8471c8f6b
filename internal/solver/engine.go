package solver

import (
	"context"
	"math"
	"sort"

	"coldchain-dispatch-service/internal/domain"
	"coldchain-dispatch-service/internal/thermo"
)

// Status is the search outcome classification.
type Status string

const (
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
	StatusTimeout    Status = "TIMEOUT"
)

// plateauLimit bounds how many penalization rounds may pass without the
// incumbent improving before the search settles.
const plateauLimit = 30

// StopSchedule is the timing of one node on a route. ArrivalMin is the
// service start and always lies inside the chosen window; WaitMin is idle
// time spent before the window opened.
type StopSchedule struct {
	Node         int
	ArrivalMin   int
	DepartureMin int
	WaitMin      int
	WindowIndex  int
	TravelMin    int
	DistanceM    int64
}

// VehicleRoute is one vehicle's evaluated assignment, return leg included.
type VehicleRoute struct {
	Vehicle       int
	Nodes         []int
	Schedule      []StopSchedule
	ReturnArrival int
	DistanceM     int64
	DurationMin   int
	LaborMin      int
	Temps         thermo.RouteTemps
}

// Result is what the search hands to the plan assembler.
type Result struct {
	Routes     []VehicleRoute
	Dropped    []int
	Status     Status
	Cost       int64
	Iterations int
}

// routeEval is the forward evaluation of a candidate node sequence on one
// vehicle.
type routeEval struct {
	ok           bool
	strictBreach bool
	schedule     []StopSchedule
	returnMin    int
	distM        int64
	laborMin     int
	loadW        int64
	loadV        int64
	tempPenalty  int64
	laborPenalty int64
	temps        thermo.RouteTemps
}

// Solve runs the two-phase search: parallel cheapest insertion to build an
// initial solution, then guided local search over relocate, swap, 2-opt and
// reinsert moves. It polls ctx between iterations and returns the best
// solution found when the deadline arrives.
func Solve(ctx context.Context, m *Model) *Result {
	e := &engine{
		m:       m,
		routes:  make([][]int, len(m.Vehicles)),
		evals:   make([]routeEval, len(m.Vehicles)),
		arcPen:  make(map[[2]int]int64),
		dropped: make(map[int]bool),
	}
	for n := 1; n < len(m.Nodes); n++ {
		e.dropped[n] = true
	}

	timedOut := !e.insertAll(ctx)
	e.snapshotBest()
	if !timedOut {
		e.improve(ctx)
	}

	return e.result(timedOut)
}

type engine struct {
	m      *Model
	routes [][]int
	evals  []routeEval
	// arcPen holds guided-search penalties per directed arc.
	arcPen  map[[2]int]int64
	lambda  int64
	dropped map[int]bool

	bestRoutes  [][]int
	bestCost    int64
	bestDropped []int

	iterations int
}

// insertAll is the construction phase. It repeatedly applies the globally
// cheapest feasible insertion until no node can be inserted below its drop
// penalty. Returns false when the context expired mid-construction.
func (e *engine) insertAll(ctx context.Context) bool {
	for len(e.dropped) > 0 {
		if done(ctx) {
			return false
		}
		bestDelta := int64(math.MaxInt64)
		bestNode, bestVeh, bestPos := -1, -1, -1
		var bestEval routeEval

		for _, n := range sortedKeys(e.dropped) {
			node := e.m.Nodes[n]
			for v := range e.m.Vehicles {
				cur := routeCost(e.m, v, e.evals[v])
				for pos := 0; pos <= len(e.routes[v]); pos++ {
					cand := insertAt(e.routes[v], pos, n)
					ev := evalRoute(e.m, e.m.Vehicles[v], cand)
					if !ev.ok || ev.strictBreach {
						continue
					}
					delta := routeCost(e.m, v, ev) - cur
					if delta >= node.DropPenalty {
						continue
					}
					if delta < bestDelta {
						bestDelta = delta
						bestNode, bestVeh, bestPos = n, v, pos
						bestEval = ev
					}
				}
			}
		}
		if bestNode < 0 {
			break
		}
		e.routes[bestVeh] = insertAt(e.routes[bestVeh], bestPos, bestNode)
		e.evals[bestVeh] = bestEval
		delete(e.dropped, bestNode)
		e.iterations++
	}
	return true
}

// improve is the guided local search phase. Each pass applies the best
// improving move under the penalty-augmented cost; at a local optimum the
// highest-utility arc gains penalty weight, steering later passes away from
// it. The incumbent is tracked under the real cost.
func (e *engine) improve(ctx context.Context) {
	plateau := 0
	for plateau < plateauLimit {
		if done(ctx) {
			break
		}
		e.iterations++
		if !e.applyBestMove() {
			if e.lambda == 0 {
				e.lambda = e.initialLambda()
			}
			e.penalizeWorstArc()
			plateau++
			continue
		}
		if c := e.cost(e.evals, e.droppedList()); c < e.bestCost {
			e.snapshotBest()
			plateau = 0
		}
	}
	e.restoreBest()
}

// cost is the real objective: arc meters, vehicle fixed costs, temperature
// and labor penalties, the global-span term, and drop penalties.
func (e *engine) cost(evals []routeEval, dropped []int) int64 {
	var total int64
	maxReturn := e.m.DepartureMin
	used := false
	for v := range evals {
		total += routeCost(e.m, v, evals[v])
		if len(evals[v].schedule) > 0 {
			used = true
			if evals[v].returnMin > maxReturn {
				maxReturn = evals[v].returnMin
			}
		}
	}
	if used {
		total += e.m.Params.SpanCoeff * int64(maxReturn-e.m.DepartureMin)
	}
	for _, n := range dropped {
		total += e.m.Nodes[n].DropPenalty
	}
	return total
}

func (e *engine) augCost(evals []routeEval, routes [][]int, dropped []int) int64 {
	c := e.cost(evals, dropped)
	if e.lambda == 0 {
		return c
	}
	var pen int64
	for v := range routes {
		prev := 0
		for _, n := range routes[v] {
			pen += e.arcPen[[2]int{prev, n}]
			prev = n
		}
		if len(routes[v]) > 0 {
			pen += e.arcPen[[2]int{prev, 0}]
		}
	}
	return c + e.lambda*pen
}

// initialLambda scales penalties to a small fraction of the mean arc cost of
// the incumbent, keeping the augmented landscape close to the real one.
func (e *engine) initialLambda() int64 {
	var dist int64
	arcs := 0
	for v := range e.routes {
		if len(e.routes[v]) == 0 {
			continue
		}
		dist += e.evals[v].distM
		arcs += len(e.routes[v]) + 1
	}
	if arcs == 0 {
		return 1
	}
	l := dist / int64(arcs) / 5
	if l < 1 {
		l = 1
	}
	return l
}

// penalizeWorstArc bumps the penalty of the arc with the highest utility
// (cost over accumulated penalty) in the current solution.
func (e *engine) penalizeWorstArc() {
	bestUtil := -1.0
	var bestArc [2]int
	found := false
	for v := range e.routes {
		prev := 0
		visit := func(n int) {
			arc := [2]int{prev, n}
			util := float64(e.m.Dist[prev][n]) / float64(1+e.arcPen[arc])
			if util > bestUtil {
				bestUtil = util
				bestArc = arc
				found = true
			}
			prev = n
		}
		for _, n := range e.routes[v] {
			visit(n)
		}
		if len(e.routes[v]) > 0 {
			visit(0)
		}
	}
	if found {
		e.arcPen[bestArc]++
	}
}

// applyBestMove scans relocate, swap, intra-route 2-opt, reinsertion of
// dropped nodes and routed-for-dropped exchange, applying the single best
// move that improves the augmented cost. Scan order is fixed so ties resolve
// deterministically.
func (e *engine) applyBestMove() bool {
	curAug := e.augCost(e.evals, e.routes, e.droppedList())

	var best *move
	consider := func(mv move) {
		if mv.aug < curAug && (best == nil || mv.aug < best.aug) {
			m := mv
			best = &m
		}
	}

	e.scanRelocate(consider)
	e.scanSwap(consider)
	e.scanTwoOpt(consider)
	e.scanReinsert(consider)
	e.scanExchange(consider)

	if best == nil {
		return false
	}
	e.routes[best.v1] = best.r1
	e.evals[best.v1] = best.e1
	if best.v2 >= 0 {
		e.routes[best.v2] = best.r2
		e.evals[best.v2] = best.e2
	}
	if best.reinserted >= 0 {
		delete(e.dropped, best.reinserted)
	}
	if best.dropAdded >= 0 {
		e.dropped[best.dropAdded] = true
	}
	return true
}

type move struct {
	aug        int64
	v1         int
	r1         []int
	e1         routeEval
	v2         int
	r2         []int
	e2         routeEval
	reinserted int
	dropAdded  int
}

// candidate evaluates a tentative pair of routes against the augmented cost,
// borrowing the cached evals of untouched vehicles. reinserted joins the
// routed set, dropAdded leaves it; either may be -1.
func (e *engine) candidate(v1 int, r1 []int, v2 int, r2 []int, reinserted, dropAdded int) (move, bool) {
	e1 := evalRoute(e.m, e.m.Vehicles[v1], r1)
	if !e1.ok || e1.strictBreach {
		return move{}, false
	}
	var e2 routeEval
	if v2 >= 0 {
		e2 = evalRoute(e.m, e.m.Vehicles[v2], r2)
		if !e2.ok || e2.strictBreach {
			return move{}, false
		}
	}

	evals := make([]routeEval, len(e.evals))
	copy(evals, e.evals)
	routes := make([][]int, len(e.routes))
	copy(routes, e.routes)
	evals[v1], routes[v1] = e1, r1
	if v2 >= 0 {
		evals[v2], routes[v2] = e2, r2
	}

	dropped := e.droppedList()
	if reinserted >= 0 {
		dropped = removeValue(dropped, reinserted)
	}
	if dropAdded >= 0 {
		dropped = append(dropped, dropAdded)
	}

	return move{
		aug: e.augCost(evals, routes, dropped),
		v1:  v1, r1: r1, e1: e1,
		v2: v2, r2: r2, e2: e2,
		reinserted: reinserted,
		dropAdded:  dropAdded,
	}, true
}

func (e *engine) scanRelocate(consider func(move)) {
	for v1 := range e.routes {
		for i := range e.routes[v1] {
			n := e.routes[v1][i]
			src := removeAt(e.routes[v1], i)
			for v2 := range e.routes {
				base := src
				if v2 != v1 {
					base = e.routes[v2]
				}
				for pos := 0; pos <= len(base); pos++ {
					if v2 == v1 && pos == i {
						continue
					}
					dst := insertAt(base, pos, n)
					var mv move
					var ok bool
					if v2 == v1 {
						mv, ok = e.candidate(v1, dst, -1, nil, -1, -1)
					} else {
						mv, ok = e.candidate(v1, src, v2, dst, -1, -1)
					}
					if ok {
						consider(mv)
					}
				}
			}
		}
	}
}

func (e *engine) scanSwap(consider func(move)) {
	for v1 := range e.routes {
		for i := range e.routes[v1] {
			for v2 := v1; v2 < len(e.routes); v2++ {
				jStart := 0
				if v2 == v1 {
					jStart = i + 1
				}
				for j := jStart; j < len(e.routes[v2]); j++ {
					r1 := append([]int(nil), e.routes[v1]...)
					if v2 == v1 {
						r1[i], r1[j] = r1[j], r1[i]
						if mv, ok := e.candidate(v1, r1, -1, nil, -1, -1); ok {
							consider(mv)
						}
						continue
					}
					r2 := append([]int(nil), e.routes[v2]...)
					r1[i], r2[j] = r2[j], r1[i]
					if mv, ok := e.candidate(v1, r1, v2, r2, -1, -1); ok {
						consider(mv)
					}
				}
			}
		}
	}
}

func (e *engine) scanTwoOpt(consider func(move)) {
	for v := range e.routes {
		r := e.routes[v]
		for i := 0; i < len(r)-1; i++ {
			for j := i + 1; j < len(r); j++ {
				rev := append([]int(nil), r...)
				for a, b := i, j; a < b; a, b = a+1, b-1 {
					rev[a], rev[b] = rev[b], rev[a]
				}
				if mv, ok := e.candidate(v, rev, -1, nil, -1, -1); ok {
					consider(mv)
				}
			}
		}
	}
}

func (e *engine) scanReinsert(consider func(move)) {
	for _, n := range sortedKeys(e.dropped) {
		for v := range e.routes {
			for pos := 0; pos <= len(e.routes[v]); pos++ {
				dst := insertAt(e.routes[v], pos, n)
				if mv, ok := e.candidate(v, dst, -1, nil, n, -1); ok {
					consider(mv)
				}
			}
		}
	}
}

// scanExchange trades a routed node for a dropped one. This is the only way
// out of a construction-order trap where capacity admitted a cheap node
// whose drop penalty is lower than the one left behind.
func (e *engine) scanExchange(consider func(move)) {
	droppedNodes := sortedKeys(e.dropped)
	if len(droppedNodes) == 0 {
		return
	}
	for v := range e.routes {
		for i := range e.routes[v] {
			out := e.routes[v][i]
			base := removeAt(e.routes[v], i)
			for _, n := range droppedNodes {
				for pos := 0; pos <= len(base); pos++ {
					dst := insertAt(base, pos, n)
					if mv, ok := e.candidate(v, dst, -1, nil, n, out); ok {
						consider(mv)
					}
				}
			}
		}
	}
}

func (e *engine) snapshotBest() {
	e.bestRoutes = make([][]int, len(e.routes))
	for v := range e.routes {
		e.bestRoutes[v] = append([]int(nil), e.routes[v]...)
	}
	e.bestDropped = e.droppedList()
	e.bestCost = e.cost(e.evals, e.bestDropped)
}

func (e *engine) restoreBest() {
	for v := range e.bestRoutes {
		e.routes[v] = append([]int(nil), e.bestRoutes[v]...)
		e.evals[v] = evalRoute(e.m, e.m.Vehicles[v], e.routes[v])
	}
	e.dropped = make(map[int]bool)
	for _, n := range e.bestDropped {
		e.dropped[n] = true
	}
}

func (e *engine) droppedList() []int {
	return sortedKeys(e.dropped)
}

func (e *engine) result(timedOut bool) *Result {
	dropped := e.droppedList()
	routes := make([]VehicleRoute, len(e.routes))
	anyServed := false
	for v := range e.routes {
		ev := e.evals[v]
		routes[v] = VehicleRoute{
			Vehicle:       v,
			Nodes:         append([]int(nil), e.routes[v]...),
			Schedule:      ev.schedule,
			ReturnArrival: ev.returnMin,
			DistanceM:     ev.distM,
			LaborMin:      ev.laborMin,
			Temps:         ev.temps,
		}
		if len(e.routes[v]) > 0 {
			anyServed = true
			routes[v].DurationMin = ev.returnMin - e.m.DepartureMin
		}
	}

	status := StatusFeasible
	for _, n := range dropped {
		if e.m.Nodes[n].SLA == domain.SLAStrict {
			status = StatusInfeasible
			break
		}
	}
	if timedOut && !anyServed {
		status = StatusTimeout
	}

	return &Result{
		Routes:     routes,
		Dropped:    dropped,
		Status:     status,
		Cost:       e.cost(e.evals, dropped),
		Iterations: e.iterations,
	}
}

// evalRoute forward-propagates time, load and temperature over a node
// sequence. The earliest window that can contain the whole delivery is
// selected; waiting before a window opens is allowed, arriving after the
// last one closes is not.
func evalRoute(m *Model, v VehicleSpec, nodes []int) routeEval {
	if len(nodes) == 0 {
		return routeEval{ok: true}
	}
	ev := routeEval{ok: true, schedule: make([]StopSchedule, 0, len(nodes))}

	t := m.DepartureMin
	prev := 0
	for _, n := range nodes {
		node := m.Nodes[n]
		travel := int(m.Time[prev][n])
		t += travel

		wIdx := -1
		arr := 0
		for i, w := range node.Windows {
			start := t
			if w.StartMin > start {
				start = w.StartMin
			}
			if w.FitsDelivery(start, node.ServiceMin) {
				wIdx, arr = i, start
				break
			}
		}
		if wIdx < 0 {
			return routeEval{}
		}

		ev.schedule = append(ev.schedule, StopSchedule{
			Node:         n,
			ArrivalMin:   arr,
			DepartureMin: arr + node.ServiceMin,
			WaitMin:      arr - t,
			WindowIndex:  wIdx,
			TravelMin:    travel,
			DistanceM:    m.Dist[prev][n],
		})
		ev.distM += m.Dist[prev][n]
		ev.laborMin += travel + node.ServiceMin
		ev.loadW += node.DemandW
		ev.loadV += node.DemandV
		t = arr + node.ServiceMin
		prev = n
	}

	back := int(m.Time[prev][0])
	t += back
	if t > m.HorizonMin {
		return routeEval{}
	}
	ev.returnMin = t
	ev.distM += m.Dist[prev][0]
	ev.laborMin += back

	if ev.loadW > v.CapW || ev.loadV > v.CapV {
		return routeEval{}
	}

	legs := make([]thermo.Leg, len(nodes))
	for i, n := range nodes {
		legs[i] = thermo.Leg{
			TravelMin:    float64(ev.schedule[i].TravelMin),
			ServiceMin:   float64(m.Nodes[n].ServiceMin),
			TempCeilingC: m.Nodes[n].TempCeilingC,
		}
	}
	ev.temps = thermo.Track(m.InitialTempC, m.AmbientC, v.Thermo, legs)
	for i, st := range ev.temps.Stops {
		if st.Feasible {
			continue
		}
		if m.Nodes[nodes[i]].SLA == domain.SLAStrict {
			ev.strictBreach = true
			return ev
		}
		ev.tempPenalty += int64(st.OvershootC * float64(m.Params.TempViolationPenalty))
	}

	if v.LaborCapMin > 0 && ev.laborMin > v.LaborCapMin {
		overageHours := int64((ev.laborMin - v.LaborCapMin + 59) / 60)
		unit := m.Params.VehicleFixedCost
		if m.MaxRouteDistM > unit {
			unit = m.MaxRouteDistM
		}
		if overageHours < 1 {
			overageHours = 1
		}
		ev.laborPenalty = unit * overageHours
	}

	return ev
}

func routeCost(m *Model, v int, ev routeEval) int64 {
	if len(ev.schedule) == 0 {
		return 0
	}
	return ev.distM + m.Vehicles[v].FixedCost + ev.tempPenalty + ev.laborPenalty
}

func insertAt(r []int, pos, n int) []int {
	out := make([]int, 0, len(r)+1)
	out = append(out, r[:pos]...)
	out = append(out, n)
	out = append(out, r[pos:]...)
	return out
}

func removeAt(r []int, i int) []int {
	out := make([]int, 0, len(r)-1)
	out = append(out, r[:i]...)
	out = append(out, r[i+1:]...)
	return out
}

func removeValue(s []int, n int) []int {
	out := make([]int, 0, len(s))
	for _, v := range s {
		if v != n {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func done(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
