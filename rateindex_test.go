package tilesim

import (
	"math"
	"math/rand"
	"testing"
)

const rateTol = 1e-9

func checkTreeConsistency(t *testing.T, ri *RateIndex) {
	t.Helper()
	for l := 0; l+1 < len(ri.levels); l++ {
		childDim := dimAt(ri.size, l)
		parentDim := dimAt(ri.size, l+1)
		child := ri.levels[l]
		parent := ri.levels[l+1]
		for pi := 0; pi < parentDim; pi++ {
			for pj := 0; pj < parentDim; pj++ {
				ci, cj := pi*2, pj*2
				want := child[ci*childDim+cj] + child[ci*childDim+cj+1] +
					child[(ci+1)*childDim+cj] + child[(ci+1)*childDim+cj+1]
				got := parent[pi*parentDim+pj]
				if math.Abs(want-got) > rateTol*math.Max(1, math.Abs(want)) {
					t.Fatalf("level %d->%d at (%d,%d): want %v got %v", l, l+1, pi, pj, want, got)
				}
			}
		}
	}
	var sum Rate
	for _, v := range ri.levels[0] {
		sum += v
	}
	if math.Abs(sum-ri.TotalRate()) > rateTol*math.Max(1, math.Abs(sum)) {
		t.Fatalf("total rate mismatch: sum(level0)=%v TotalRate()=%v", sum, ri.TotalRate())
	}
}

func TestRateIndexConsistencyAfterRandomUpdates(t *testing.T) {
	ri := NewRateIndex(16)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		p := Point{Row: rng.Intn(16), Col: rng.Intn(16)}
		ri.Update(p, rng.Float64()*10)
		checkTreeConsistency(t, ri)
	}
}

func TestRateIndexChoosePointRespectsBuckets(t *testing.T) {
	ri := NewRateIndex(8)
	ri.Update(Point{0, 0}, 1)
	ri.Update(Point{7, 7}, 3)
	total := ri.TotalRate()
	if math.Abs(total-4) > rateTol {
		t.Fatalf("expected total rate 4, got %v", total)
	}
	p, _ := ri.ChoosePoint(0.5)
	if p != (Point{0, 0}) {
		t.Errorf("u=0.5 should land in the (0,0) bucket, got %v", p)
	}
	p2, _ := ri.ChoosePoint(3.9)
	if p2 != (Point{7, 7}) {
		t.Errorf("u=3.9 should land in the (7,7) bucket, got %v", p2)
	}
}

func TestRateIndexUpdateIsIdempotentAndLocal(t *testing.T) {
	ri := NewRateIndex(8)
	for i := 0; i < 64; i++ {
		ri.Update(Point{i / 8, i % 8}, 1)
	}
	checkTreeConsistency(t, ri)
	before := ri.TotalRate()
	ri.Update(Point{3, 3}, 1) // no-op value change
	if ri.TotalRate() != before {
		t.Errorf("expected total rate unchanged, got %v want %v", ri.TotalRate(), before)
	}
	ri.Update(Point{3, 3}, 5)
	if got, want := ri.TotalRate(), before+4; math.Abs(got-want) > rateTol {
		t.Errorf("expected total rate %v after +4 delta, got %v", want, got)
	}
	checkTreeConsistency(t, ri)
}
