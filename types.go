package tilesim

// Tile is a non-negative tile species identifier. 0 denotes an empty cell.
type Tile uint32

// Glue is a non-negative edge-label identifier. 0 is the reserved null glue;
// two glues bond iff they are equal and non-zero.
type Glue uint32

// NumTiles counts non-empty cells on a canvas.
type NumTiles uint64

// NumEvents counts Gillespie steps taken by a State.
type NumEvents uint64

// Rate is an instantaneous event frequency (propensity), in inverse time units.
type Rate = float64

// Energy is a bond or attachment energy, in units of kT.
type Energy = float64

// Point addresses a cell on a Canvas by (row, col).
type Point struct {
	Row, Col int
}

// Side names one of the four edges of a tile, in N, E, S, W order.
type Side int

const (
	SideN Side = iota
	SideE
	SideS
	SideW
)

// Orientation is the placement axis of a dimer seed.
type Orientation int

const (
	OrientationNS Orientation = iota
	OrientationWE
)

// FissionHandling selects the policy applied when a detachment event could,
// in a full model, split an assembly into disconnected fragments. This
// specification implements tile removal as removing a single cell; a full
// fission/scission model is out of scope (see DESIGN.md), so KeepLargest is
// currently the only meaningful value and behaves identically to the
// unhandled case.
type FissionHandling int

const (
	FissionKeepLargest FissionHandling = iota
)

// Dimer describes a pair of tile species that can bond to form the seed of
// an assembly, with the rate at which that pair forms and the axis along
// which the two tiles are placed.
type Dimer struct {
	T1, T2        Tile
	Orientation   Orientation
	FormationRate Rate
}
