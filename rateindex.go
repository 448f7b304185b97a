package tilesim

// RateIndex is a hierarchical partial-sum structure over a canvas's
// per-site propensities: levels[0] has shape size x size; levels[l+1]
// has shape (size/2^(l+1))^2, with each entry the sum of its four
// children in levels[l]. levels[last] is a single cell holding the
// total rate. This supports O(log size) point updates and O(log size)
// weighted point sampling, grounded on the quadtree partial-sum scheme
// (qt_update_level / choose_event_point) used by the kinetic engine.
type RateIndex struct {
	size   int
	levels [][]Rate // levels[l] is a flat (dim x dim) row-major array, dim = size >> l
}

// NewRateIndex allocates an all-zero Rate Index for a canvas of the
// given side length. size must be a power of two.
func NewRateIndex(size int) *RateIndex {
	ri := &RateIndex{size: size}
	dim := size
	for dim >= 1 {
		ri.levels = append(ri.levels, make([]Rate, dim*dim))
		if dim == 1 {
			break
		}
		dim /= 2
	}
	return ri
}

// TotalRate returns R[L][0,0], the root of the tree.
func (ri *RateIndex) TotalRate() Rate {
	top := ri.levels[len(ri.levels)-1]
	return top[0]
}

func dimAt(size, level int) int {
	return size >> level
}

// Set installs the base-level propensity at p directly (used only to
// build a fresh index from scratch; incremental simulation uses
// Update). It does not propagate sums upward — call Reconcile after a
// batch of Set calls, or prefer Update for single-site changes.
func (ri *RateIndex) Set(p Point, r Rate) {
	dim := ri.size
	ri.levels[0][p.Row*dim+p.Col] = r
}

// Reconcile recomputes every level above level 0 from scratch. Used
// once after bulk-loading level 0 via Set.
func (ri *RateIndex) Reconcile() {
	for l := 0; l+1 < len(ri.levels); l++ {
		childDim := dimAt(ri.size, l)
		parentDim := dimAt(ri.size, l+1)
		child := ri.levels[l]
		parent := ri.levels[l+1]
		for pi := 0; pi < parentDim; pi++ {
			for pj := 0; pj < parentDim; pj++ {
				var sum Rate
				ci, cj := pi*2, pj*2
				sum += child[ci*childDim+cj]
				sum += child[ci*childDim+cj+1]
				sum += child[(ci+1)*childDim+cj]
				sum += child[(ci+1)*childDim+cj+1]
				parent[pi*parentDim+pj] = sum
			}
		}
	}
}

// Update sets R[0][p] to newRate (the caller's propensity for p), then
// resums every ancestor up to the root. Cost O(log size).
func (ri *RateIndex) Update(p Point, newRate Rate) {
	dim := ri.size
	ri.levels[0][p.Row*dim+p.Col] = newRate
	row, col := p.Row, p.Col
	for l := 0; l+1 < len(ri.levels); l++ {
		childDim := dimAt(ri.size, l)
		parentDim := dimAt(ri.size, l+1)
		child := ri.levels[l]
		parent := ri.levels[l+1]
		pi, pj := row/2, col/2
		ci, cj := pi*2, pj*2
		sum := child[ci*childDim+cj] + child[ci*childDim+cj+1] +
			child[(ci+1)*childDim+cj] + child[(ci+1)*childDim+cj+1]
		parent[pi*parentDim+pj] = sum
		row, col = pi, pj
	}
}

// Get returns the current base-level rate at p.
func (ri *RateIndex) Get(p Point) Rate {
	dim := ri.size
	return ri.levels[0][p.Row*dim+p.Col]
}

// ChoosePoint descends the tree from the root given u, a uniform sample
// in [0, TotalRate()), comparing against the four children in a fixed
// NW, NE, SW, SE order at each interior node and descending into the
// first whose cumulative bucket contains the residual. It returns the
// chosen base-level point and the residual remaining for the Model to
// use in ChooseEventAt.
func (ri *RateIndex) ChoosePoint(u Rate) (Point, Rate) {
	row, col := 0, 0
	residual := u
	for l := len(ri.levels) - 1; l > 0; l-- {
		childDim := dimAt(ri.size, l-1)
		child := ri.levels[l-1]
		ci, cj := row*2, col*2
		nw := child[ci*childDim+cj]
		ne := child[ci*childDim+cj+1]
		sw := child[(ci+1)*childDim+cj]
		// se is whatever remains; no need to read it.
		switch {
		case residual < nw:
			row, col = ci, cj
		case residual < nw+ne:
			residual -= nw
			row, col = ci, cj+1
		case residual < nw+ne+sw:
			residual -= nw + ne
			row, col = ci+1, cj
		default:
			residual -= nw + ne + sw
			row, col = ci+1, cj+1
		}
	}
	return Point{Row: row, Col: col}, residual
}
