package pareto

import (
	"container/heap"
	"context"
	"log/slog"
	"math"
	"sort"

	"evplanner/internal/energy"
	"evplanner/internal/geo"
	"evplanner/internal/graph"
	"evplanner/internal/planner/perr"

	"github.com/google/uuid"
)

// metersPerDegreeSecond converts a degree-distance heuristic into seconds:
// one degree of latitude is ~111,000 m, divided by an assumed 60 km/h
// cruising speed (60*1000/3600 m/s), per the C5 heuristic definition.
const metersPerDegreeSecond = 111000.0 / (60.0 * 1000.0 / 3600.0)

// safetyBreakpointM is the distance at which the safety-score piecewise
// function switches from linear to logarithmic.
const safetyBreakpointM = 10000.0

// state is one entry of the search frontier: a candidate continuation of a
// path prefix, ordered for expansion by f_score.
type state struct {
	fScore  float64
	elapsed float64
	maxDist float64
	node    graph.NodeID
	path    []graph.NodeID
	seq     int64
}

// frontier is a min-heap of states ordered by f_score, breaking ties by
// insertion sequence so equal-f_score states expand in FIFO order (§5
// ordering guarantee).
type frontier []*state

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].fScore != f[j].fScore {
		return f[i].fScore < f[j].fScore
	}

	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)        { *f = append(*f, x.(*state)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]

	return item
}

// dominancePair is one (time, max_distance) entry retained in a node's
// dominance frontier (§3 DominanceFrontier).
type dominancePair struct {
	time    float64
	maxDist float64
}

// Search runs the bi-objective A★ core (C5) described in spec.md §4.5: a
// best-first search over p.Graph from p.Start to p.End, pruning
// dominated states and collecting a Pareto-optimal set of at most
// p.MaxPaths paths trading elapsed travel time against the farthest
// observed distance to a charging station.
//
// ctx is checked on every pop from the frontier; a cancelled or
// deadline-exceeded context aborts the search and returns the matching
// perr.PlannerError with no partial result.
func Search(ctx context.Context, params Params) (Output, error) {
	p := params.withDefaults()

	logger := p.logger()
	queryID := uuid.NewString()

	if p.Start == p.End {
		return zeroLengthOutput(p), nil
	}

	logger.Info("pareto search start",
		slog.String("query_id", queryID),
		slog.Int64("start", int64(p.Start)),
		slog.Int64("end", int64(p.End)),
		slog.Int("max_paths", p.MaxPaths),
	)

	s := &searcher{
		params:    p,
		queryID:   queryID,
		logger:    logger,
		dominance: make(map[graph.NodeID][]dominancePair),
	}

	out, err := s.run(ctx)
	if err != nil {
		return Output{}, err
	}

	logger.Info("pareto search finished",
		slog.String("query_id", queryID),
		slog.Int("results", len(out.Results)),
		slog.Int("reports", len(out.Reports)),
	)
	logger.Debug("pareto search dominance pruning",
		slog.String("query_id", queryID),
		slog.Int64("pruned_states", s.pruned),
	)

	return out, nil
}

func zeroLengthOutput(p Params) Output {
	return Output{
		Results: []Result{
			{
				Path: []graph.NodeID{p.Start},
				Cost: PathCost{
					TravelTimeS:         0,
					MaxStationDistanceM: p.Stations.DistanceToNearest(p.Start),
					RemainingSOCPct:     p.InitialSOC,
				},
			},
		},
	}
}

// searcher owns the mutable state of one search invocation: the frontier,
// dominance table, and result accumulator. None of it survives the call.
type searcher struct {
	params    Params
	queryID   string
	logger    *slog.Logger
	dominance map[graph.NodeID][]dominancePair

	results []Result
	reports []InfeasibilityReport

	seq     int64
	pruned  int64
}

func (s *searcher) run(ctx context.Context) (Output, error) {
	q := &frontier{}
	heap.Init(q)

	startNode, ok := s.params.Graph.Node(s.params.Start)
	if !ok {
		return Output{}, perr.InvalidAddress("start node not found in graph")
	}
	if _, ok := s.params.Graph.Node(s.params.End); !ok {
		return Output{}, perr.InvalidAddress("end node not found in graph")
	}

	startMaxDist := s.params.Stations.DistanceToNearest(s.params.Start)
	heap.Push(q, &state{
		fScore:  s.fScore(0, startMaxDist, startNode),
		elapsed: 0,
		maxDist: startMaxDist,
		node:    s.params.Start,
		path:    []graph.NodeID{s.params.Start},
		seq:     s.nextSeq(),
	})
	s.recordDominance(s.params.Start, dominancePair{time: 0, maxDist: startMaxDist})

	for q.Len() > 0 && len(s.results) < s.params.MaxPaths {
		if pe := perr.FromContext(ctx); pe != nil {
			return Output{}, pe
		}

		cur := heap.Pop(q).(*state)

		if cur.node == s.params.End {
			s.acceptOrReject(cur)
		}

		s.expand(q, cur)
	}

	s.results = sortAndFilter(s.results, s.params.SimilarityThreshold)

	return Output{Results: s.results, Reports: s.reports}, nil
}

func (s *searcher) nextSeq() int64 {
	s.seq++

	return s.seq
}

// expand pushes every admissible neighbor continuation of cur onto q,
// skipping nodes already in the path prefix (loop-free paths only) and
// states dominated at the target node's frontier.
func (s *searcher) expand(q *frontier, cur *state) {
	for _, edge := range s.params.Graph.Neighbors(cur.node) {
		if containsNode(cur.path, edge.Target) {
			continue
		}

		newElapsed := cur.elapsed + edge.TravelTimeS
		newMaxDist := math.Max(cur.maxDist, s.params.Stations.DistanceToNearest(edge.Target))

		if s.isDominated(edge.Target, newElapsed, newMaxDist) {
			s.pruned++

			continue
		}
		s.recordDominance(edge.Target, dominancePair{time: newElapsed, maxDist: newMaxDist})

		targetNode, _ := s.params.Graph.Node(edge.Target)
		path := make([]graph.NodeID, len(cur.path)+1)
		copy(path, cur.path)
		path[len(cur.path)] = edge.Target

		heap.Push(q, &state{
			fScore:  s.fScore(newElapsed, newMaxDist, targetNode),
			elapsed: newElapsed,
			maxDist: newMaxDist,
			node:    edge.Target,
			path:    path,
			seq:     s.nextSeq(),
		})
	}
}

// fScore combines time-to-goal progress with the safety objective, per the
// C5 f-score definition.
func (s *searcher) fScore(elapsed, maxDist float64, node graph.Node) float64 {
	end, _ := s.params.Graph.Node(s.params.End)
	h := geo.DegreeDistance(node.Point, end.Point) * metersPerDegreeSecond

	return (elapsed+h)/3600.0 + safetyScore(maxDist)
}

func safetyScore(d float64) float64 {
	if d <= safetyBreakpointM {
		return d / safetyBreakpointM
	}

	return 1 + 0.5*math.Log10(1+(d-safetyBreakpointM)/safetyBreakpointM)
}

// isDominated reports whether the per-node frontier for node already
// contains an entry that weakly dominates (time, maxDist), per the
// state-level dominance rule (strict, no ε tolerance).
func (s *searcher) isDominated(node graph.NodeID, t, d float64) bool {
	for _, e := range s.dominance[node] {
		if e.time <= t && e.maxDist <= d {
			return true
		}
	}

	return false
}

// recordDominance inserts a new (time, maxDist) entry into node's frontier,
// removing entries weakly dominated by it, then caps the list at
// DominanceCap, dropping the lexicographically worst entries first (§9).
func (s *searcher) recordDominance(node graph.NodeID, p dominancePair) {
	kept := s.dominance[node][:0]
	for _, e := range s.dominance[node] {
		if p.time <= e.time && p.maxDist <= e.maxDist {
			continue // p weakly dominates e; drop e.
		}
		kept = append(kept, e)
	}
	kept = append(kept, p)

	if len(kept) > s.params.DominanceCap {
		sort.Slice(kept, func(i, j int) bool {
			if kept[i].time != kept[j].time {
				return kept[i].time < kept[j].time
			}

			return kept[i].maxDist < kept[j].maxDist
		})
		kept = kept[:s.params.DominanceCap]
	}

	s.dominance[node] = kept
}

// acceptOrReject evaluates a goal-reaching state against the energy model
// and, if feasible, the goal-level Pareto frontier (ε-tolerant dominance).
func (s *searcher) acceptOrReject(cur *state) {
	totalLength := energy.PathLengthM(s.params.Graph, cur.path)
	remaining := energy.RemainingSOC(s.params.InitialSOC, totalLength, s.params.ConsumptionPctPerKm)

	if !energy.Feasible(remaining, s.params.ThresholdSOC) {
		s.logger.Warn("pareto search infeasible goal",
			slog.String("query_id", s.queryID),
			slog.Float64("remaining_soc", remaining),
		)
		s.reports = append(s.reports, s.buildReport(cur, remaining))

		return
	}

	candidate := Result{
		Path: cur.path,
		Cost: PathCost{
			TravelTimeS:         cur.elapsed,
			MaxStationDistanceM: cur.maxDist,
			RemainingSOCPct:     remaining,
		},
	}

	s.results = acceptParetoCandidate(s.results, candidate, s.params.Epsilon)
}

// acceptParetoCandidate applies the goal-level ε-tolerant dominance rule
// (§4.5): reject candidate if an existing result (1+ε)-dominates it;
// otherwise strip results the candidate strictly dominates and append it.
func acceptParetoCandidate(results []Result, candidate Result, epsilon float64) []Result {
	for _, r := range results {
		if r.Cost.TravelTimeS*(1+epsilon) <= candidate.Cost.TravelTimeS &&
			r.Cost.MaxStationDistanceM*(1+epsilon) <= candidate.Cost.MaxStationDistanceM {
			return results
		}
	}

	survivors := results[:0]
	for _, r := range results {
		if candidate.Cost.TravelTimeS <= r.Cost.TravelTimeS &&
			candidate.Cost.MaxStationDistanceM <= r.Cost.MaxStationDistanceM &&
			(candidate.Cost.TravelTimeS < r.Cost.TravelTimeS || candidate.Cost.MaxStationDistanceM < r.Cost.MaxStationDistanceM) {
			continue // r is strictly dominated by candidate.
		}
		survivors = append(survivors, r)
	}

	return append(survivors, candidate)
}

// sortAndFilter sorts results by travel time ascending and applies the
// post-search similarity filter: keep a path only if its time exceeds the
// last-kept path's time by at least the relative threshold.
func sortAndFilter(results []Result, threshold float64) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Cost.TravelTimeS < results[j].Cost.TravelTimeS
	})

	if len(results) == 0 {
		return results
	}

	filtered := []Result{results[0]}
	lastKept := results[0].Cost.TravelTimeS
	for _, r := range results[1:] {
		if lastKept == 0 {
			if r.Cost.TravelTimeS > 0 {
				filtered = append(filtered, r)
				lastKept = r.Cost.TravelTimeS
			}

			continue
		}
		if r.Cost.TravelTimeS >= lastKept*(1+threshold) {
			filtered = append(filtered, r)
			lastKept = r.Cost.TravelTimeS
		}
	}

	return filtered
}

// buildReport constructs an InfeasibilityReport naming the last node along
// cur.path still reachable within the energy model's detour budget, and
// that node's nearest charging station, if any.
func (s *searcher) buildReport(cur *state, remaining float64) InfeasibilityReport {
	maxDetourKm := s.params.Energy.MaxDetourKm(s.params.InitialSOC, s.params.ThresholdSOC, s.params.ConsumptionPctPerKm)
	lastReachable := lastReachableNode(s.params.Graph, cur.path, maxDetourKm)

	report := InfeasibilityReport{
		RemainingSOC:      remaining,
		TotalNodes:        len(cur.path),
		LastReachableNode: lastReachable,
	}

	if st, ok := s.params.Stations.StationOf(lastReachable); ok {
		report.Station = st
		report.HasStation = true
		report.StationID = st.ID()
	}

	return report
}

// lastReachableNode walks path from its start, accumulating segment
// length, and returns the last node reached before the cumulative distance
// would exceed maxDetourKm.
func lastReachableNode(g *graph.RoadGraph, path []graph.NodeID, maxDetourKm float64) graph.NodeID {
	last := path[0]
	if maxDetourKm <= 0 {
		return last
	}

	var cumKm float64
	for i := 0; i+1 < len(path); i++ {
		segKm := energy.SegmentLengthM(g, path[i], path[i+1]) / 1000.0
		if cumKm+segKm > maxDetourKm {
			break
		}
		cumKm += segKm
		last = path[i+1]
	}

	return last
}

func containsNode(path []graph.NodeID, id graph.NodeID) bool {
	for _, n := range path {
		if n == id {
			return true
		}
	}

	return false
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}
