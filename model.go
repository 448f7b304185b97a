package tilesim

// Model is the pure, immutable per-site propensity and event-choice
// contract shared by the aTAM and kTAM. Implementations hold only
// parameter tables computed once at construction time; they carry no
// simulation state of their own.
type Model interface {
	// EventRateAt returns the propensity of an event firing at p, given
	// the tiles currently at p and its four neighbors.
	EventRateAt(c Canvas, p Point) Rate

	// ChooseEventAt deterministically walks the same enumeration order
	// used by EventRateAt and returns the tile that results from firing
	// the event selected by acc, an accumulator drawn uniformly from
	// [0, EventRateAt(c, p)). A return value of 0 means "remove the tile
	// at p" (kTAM detachment); any other value means "place this tile".
	ChooseEventAt(c Canvas, p Point, acc Rate) Tile

	// Dimers lists the tile pairs that may nucleate an assembly, each
	// with its formation rate and placement axis.
	Dimers() []Dimer

	// NumTileTypes returns the number of tile species, which is also the
	// largest tile id the model knows about (tile ids are dense, starting
	// at 1; 0 is empty).
	NumTileTypes() int
}

// TileDef is one tile species as supplied to NewATAMModel/NewKTAMModel:
// its four edge glues in N, E, S, W order and its stoichiometric
// concentration (relative to the total pool, not yet rate-scaled).
type TileDef struct {
	Edges [4]Glue
	Stoic float64
}

func (td TileDef) edge(s Side) Glue { return td.Edges[s] }

// friendsTable holds, for each side, the set of tile ids compatible with
// a neighbor presenting a particular glue on the opposite side. It is the
// adjacency-compatibility precomputation that makes propensity
// evaluation O(|friends|) instead of O(ntiles^2).
type friendsTable struct {
	// bySide[s][g] is the sorted list of tile ids whose edge() on side s
	// equals glue g (and so bond with a neighbor presenting g on the
	// opposite side).
	bySide [4]map[Glue][]Tile
}

func buildFriendsTable(tiles []TileDef) *friendsTable {
	ft := &friendsTable{}
	for s := 0; s < 4; s++ {
		ft.bySide[s] = make(map[Glue][]Tile)
	}
	for i, td := range tiles {
		t := Tile(i + 1)
		for s := SideN; s <= SideW; s++ {
			g := td.edge(s)
			if g == 0 {
				continue
			}
			ft.bySide[s][g] = append(ft.bySide[s][g], t)
		}
	}
	return ft
}

// friendsOnSide returns the tiles that present glue g on side s, i.e.
// the tiles that can bond with a neighbor lying on their own s side
// whose facing edge carries g.
func (ft *friendsTable) friendsOnSide(s Side, g Glue) []Tile {
	if g == 0 {
		return nil
	}
	return ft.bySide[s][g]
}

// opposite returns the side directly across a cell boundary from s: the
// side a neighboring tile uses to face back at the originating cell.
func opposite(s Side) Side {
	switch s {
	case SideN:
		return SideS
	case SideE:
		return SideW
	case SideS:
		return SideN
	default:
		return SideE
	}
}

// edgeOf returns the glue tile t presents on side s, or 0 if t is empty.
func edgeOf(tiles []TileDef, t Tile, s Side) Glue {
	if t == 0 {
		return 0
	}
	return tiles[t-1].edge(s)
}

// candidateTiles returns the deduplicated union of tiles that could
// legally occupy a site whose N/E/S/W neighbors are north, east, south,
// west, in a fixed enumeration order (first occurrence wins). This is
// the friends-table lookup shared by the aTAM and kTAM attachment
// enumerations: friends_s[north] ∪ friends_w[east] ∪ friends_n[south] ∪
// friends_e[west].
func (ft *friendsTable) candidateTiles(tiles []TileDef, north, east, south, west Tile) []Tile {
	seen := make(map[Tile]bool)
	var out []Tile
	add := func(ts []Tile) {
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	add(ft.friendsOnSide(SideN, edgeOf(tiles, north, SideS)))
	add(ft.friendsOnSide(SideE, edgeOf(tiles, east, SideW)))
	add(ft.friendsOnSide(SideS, edgeOf(tiles, south, SideN)))
	add(ft.friendsOnSide(SideW, edgeOf(tiles, west, SideE)))
	return out
}

// bondEnergy sums the pairwise edge-matching contribution between a tile
// t and a neighbor tile nb that sits on side s of t, under the glue
// strength table strengths. A bond only contributes if both edges carry
// the same non-zero glue.
func bondEnergy(tiles []TileDef, strengths []Energy, t, nb Tile, s Side) Energy {
	if t == 0 || nb == 0 {
		return 0
	}
	g := tiles[t-1].edge(s)
	if g == 0 || g != tiles[nb-1].edge(opposite(s)) {
		return 0
	}
	return strengths[g]
}
