package tilesim

import (
	"math"
	"math/rand"
	"time"
)

// Outcome reports which stopping predicate ended a bounded evolution.
// Bounded-evolve outcomes are not errors — Evolve returns only an
// Outcome, with no error, even for a DeadState termination.
type Outcome int

const (
	ReachedEventsMax Outcome = iota
	ReachedTimeMax
	ReachedSizeMin
	ReachedSizeMax
	ReachedWallTimeMax
	DeadState
)

func (o Outcome) String() string {
	switch o {
	case ReachedEventsMax:
		return "ReachedEventsMax"
	case ReachedTimeMax:
		return "ReachedTimeMax"
	case ReachedSizeMin:
		return "ReachedSizeMin"
	case ReachedSizeMax:
		return "ReachedSizeMax"
	case ReachedWallTimeMax:
		return "ReachedWallTimeMax"
	default:
		return "DeadState"
	}
}

// EvolveBounds configures a single bounded-evolve call. A zero-valued
// field means "no bound of that kind"; use the optional-pointer fields
// (Events, Time, SizeMin, SizeMax, WallTime) to leave a predicate unset.
type EvolveBounds struct {
	Events   *uint64
	Time     *float64
	SizeMin  *NumTiles
	SizeMax  *NumTiles
	WallTime *time.Duration
}

// Step executes a single Gillespie event against state, using model for
// propensities and rng for the two random draws. It returns false if
// the state was already dead (total_rate == 0) and no event fired.
func Step(state *State, model Model, rng *rand.Rand) bool {
	total := state.TotalRate()
	if total <= 0 {
		return false
	}

	u := rng.Float64() * total
	p, residual := state.Rates.ChoosePoint(u)

	v := rng.Float64()
	for v == 0 {
		v = rng.Float64()
	}
	dt := -math.Log(v) / total
	state.Time += dt

	newTile := model.ChooseEventAt(state.Canvas, p, residual)
	oldTile := state.Canvas.Get(p)
	state.Canvas.Set(p, newTile)
	switch {
	case oldTile == 0 && newTile != 0:
		state.NTiles++
	case oldTile != 0 && newTile == 0:
		state.NTiles--
	}
	state.TotalEvents++

	updatePlus(state, model, p)
	return true
}

// updatePlus recomputes the rate index at p and its four orthogonal
// neighbors, the "plus" shape whose propensities depend on canvas[p].
func updatePlus(state *State, model Model, p Point) {
	c := state.Canvas
	pts := []Point{p}
	if c.InBounds(c.Neighbor(p, SideN)) {
		pts = append(pts, c.Neighbor(p, SideN))
	}
	if c.InBounds(c.Neighbor(p, SideE)) {
		pts = append(pts, c.Neighbor(p, SideE))
	}
	if c.InBounds(c.Neighbor(p, SideS)) {
		pts = append(pts, c.Neighbor(p, SideS))
	}
	if c.InBounds(c.Neighbor(p, SideW)) {
		pts = append(pts, c.Neighbor(p, SideW))
	}
	for _, q := range pts {
		state.Rates.Update(q, model.EventRateAt(c, q))
	}
}

// Evolve repeatedly steps state until one of bounds's configured
// predicates fires, checked after every step. When more than one fires
// simultaneously the reported Outcome follows the priority order Dead >
// SizeMin > SizeMax > Events > Time > WallTime.
func Evolve(state *State, model Model, rng *rand.Rand, bounds EvolveBounds, logger Logger) Outcome {
	if logger == nil {
		logger = NewNopLogger()
	}
	start := time.Now()
	var events uint64

	for {
		ok := Step(state, model, rng)
		if !ok {
			logger.Debugf("dead state at n_tiles=%d events=%d", state.NTiles, state.TotalEvents)
			return DeadState
		}
		events++

		if state.TotalRate() <= 0 {
			logger.Debugf("dead state at n_tiles=%d events=%d", state.NTiles, state.TotalEvents)
			return DeadState
		}
		if bounds.SizeMin != nil && state.NTiles <= *bounds.SizeMin {
			return ReachedSizeMin
		}
		if bounds.SizeMax != nil && state.NTiles >= *bounds.SizeMax {
			return ReachedSizeMax
		}
		if bounds.Events != nil && events >= *bounds.Events {
			return ReachedEventsMax
		}
		if bounds.Time != nil && state.Time >= *bounds.Time {
			return ReachedTimeMax
		}
		if bounds.WallTime != nil && time.Since(start) >= *bounds.WallTime {
			return ReachedWallTimeMax
		}
	}
}
