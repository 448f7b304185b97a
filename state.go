package tilesim

import "math/rand"

// State owns a Canvas, its matching Rate Index, and the scalar counters
// a kinetic-engine step advances. A State is never shared between
// concurrent event loops; it may be cloned for independent evolution.
type State struct {
	Canvas      Canvas
	Rates       *RateIndex
	NTiles      NumTiles
	TotalEvents NumEvents
	Time        float64
}

// NewState builds an empty State over a freshly-allocated canvas,
// reconciling the Rate Index against model's propensities.
func NewState(canvasSize int, variant CanvasVariant, model Model) (*State, error) {
	c, err := newCanvas(canvasSize, variant)
	if err != nil {
		return nil, err
	}
	s := &State{Canvas: c, Rates: NewRateIndex(canvasSize)}
	s.reconcileAllRates(model)
	return s, nil
}

// CanvasVariant selects the boundary behavior a new canvas should have.
type CanvasVariant int

const (
	VariantSquare CanvasVariant = iota
	VariantPeriodic
	VariantTube
)

func newCanvas(size int, v CanvasVariant) (Canvas, error) {
	switch v {
	case VariantPeriodic:
		return NewPeriodicCanvas(size)
	case VariantTube:
		return NewTubeCanvas(size)
	default:
		return NewSquareCanvas(size)
	}
}

func (s *State) reconcileAllRates(model Model) {
	size := s.Canvas.Size()
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			p := Point{Row: row, Col: col}
			if !s.Canvas.InBounds(p) {
				continue
			}
			s.Rates.Set(p, model.EventRateAt(s.Canvas, p))
		}
	}
	s.Rates.Reconcile()
}

// TotalRate returns the cached total propensity, R[L][0,0].
func (s *State) TotalRate() Rate { return s.Rates.TotalRate() }

// Clone performs "zeroed copy from non-zero-rate support": it builds a
// new State whose canvas is empty everywhere except at cells where s's
// base-level rate is non-zero, copying the source's tile at those cells,
// then recomputes a fresh rate index from scratch against model. This
// gives FFS a statistically independent trajectory starting from a
// stored configuration without sharing rate trees between them.
func (s *State) Clone(model Model) (*State, error) {
	size := s.Canvas.Size()
	variant := canvasVariantOf(s.Canvas)
	clone, err := NewState(size, variant, noopModel{}) // placeholder rates, overwritten below
	if err != nil {
		return nil, err
	}
	var nTiles NumTiles
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			p := Point{Row: row, Col: col}
			if !s.Canvas.InBounds(p) {
				continue
			}
			if s.Rates.Get(p) == 0 {
				continue
			}
			t := s.Canvas.Get(p)
			if t != 0 {
				clone.Canvas.Set(p, t)
				nTiles++
			}
		}
	}
	clone.NTiles = nTiles
	clone.reconcileAllRates(model)
	return clone, nil
}

// canvasVariantOf reports which CanvasVariant produced c, so Clone can
// build a same-shaped canvas without the caller re-specifying it.
func canvasVariantOf(c Canvas) CanvasVariant {
	switch c.(type) {
	case *periodicCanvas:
		return VariantPeriodic
	case *tubeCanvas:
		return VariantTube
	default:
		return VariantSquare
	}
}

// noopModel supplies the placeholder all-zero rates of a new State built
// by Clone or placeDimer; both call reconcileAllRates again with the real
// model right after placing tiles, overwriting those zero rates.
type noopModel struct{}

func (noopModel) EventRateAt(Canvas, Point) Rate       { return 0 }
func (noopModel) ChooseEventAt(Canvas, Point, Rate) Tile { return 0 }
func (noopModel) Dimers() []Dimer                      { return nil }
func (noopModel) NumTileTypes() int                    { return 0 }

// InitDimer builds a fresh State seeded with a single dimer: it samples
// one of model's Dimers weighted by FormationRate, places the two tiles
// adjacent at the canvas midpoint along the sampled orientation, and
// reconciles the rate index.
func InitDimer(canvasSize int, variant CanvasVariant, model Model, rng *rand.Rand) (*State, error) {
	s, _, err := InitDimerChoice(canvasSize, variant, model, rng)
	return s, err
}

// InitDimerChoice behaves like InitDimer but also returns the sampled
// Dimer, so a caller (the FFS driver) can retrospectively reconstruct
// the same placement without evolving it.
func InitDimerChoice(canvasSize int, variant CanvasVariant, model Model, rng *rand.Rand) (*State, Dimer, error) {
	dimers := model.Dimers()
	if len(dimers) == 0 {
		return nil, Dimer{}, newConfigError(UnknownModelVariant, "model has no dimers to seed from")
	}
	var total Rate
	for _, d := range dimers {
		total += d.FormationRate
	}
	u := rng.Float64() * total
	var chosen Dimer
	var running Rate
	for _, d := range dimers {
		running += d.FormationRate
		if u < running {
			chosen = d
			break
		}
		chosen = d
	}

	s, err := placeDimer(canvasSize, variant, model, chosen)
	if err != nil {
		return nil, Dimer{}, err
	}
	return s, chosen, nil
}

// placeDimer builds a State with chosen's two tiles placed adjacent at
// the canvas midpoint along its orientation, with rates reconciled
// against model. It does not evolve the state.
func placeDimer(canvasSize int, variant CanvasVariant, model Model, chosen Dimer) (*State, error) {
	s, err := NewState(canvasSize, variant, noopModel{})
	if err != nil {
		return nil, err
	}
	mid := canvasSize / 2
	p1 := Point{Row: mid, Col: mid}
	var p2 Point
	if chosen.Orientation == OrientationNS {
		p2 = s.Canvas.Neighbor(p1, SideS)
	} else {
		p2 = s.Canvas.Neighbor(p1, SideE)
	}
	s.Canvas.Set(p1, chosen.T1)
	s.Canvas.Set(p2, chosen.T2)
	s.NTiles = 2
	s.reconcileAllRates(model)
	return s, nil
}
