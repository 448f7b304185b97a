package tilesim

// ATAMModel implements the abstract Tile Assembly Model: attachment is
// irreversible, gated by a fixed binding-strength threshold Tau. There
// are no detachment events, so occupied sites always have rate 0.
type ATAMModel struct {
	tiles     []TileDef
	strengths []Energy
	rates     []Rate
	tau       Energy
	friends   *friendsTable
	dimers    []Dimer
}

// NewATAMModel builds an aTAM Model from tile definitions, a dense
// glue-strength table (index 0 unused/null), and the binding threshold
// tau. Each tile's stoichiometry is used unchanged as its attachment
// rate.
func NewATAMModel(tiles []TileDef, strengths []Energy, tau Energy) *ATAMModel {
	rates := make([]Rate, len(tiles))
	for i, td := range tiles {
		rates[i] = td.Stoic
	}
	m := &ATAMModel{
		tiles:     tiles,
		strengths: strengths,
		rates:     rates,
		tau:       tau,
		friends:   buildFriendsTable(tiles),
	}
	m.dimers = computeDimers(tiles, strengths, rates, func(total Energy) bool { return total >= tau })
	return m
}

func (m *ATAMModel) NumTileTypes() int { return len(m.tiles) }

func (m *ATAMModel) Dimers() []Dimer { return m.dimers }

// bindingStrength sums the four edge-matching contributions a tile t
// would receive at a site with the given occupied neighbors.
func (m *ATAMModel) bindingStrength(t, north, east, south, west Tile) Energy {
	return bondEnergy(m.tiles, m.strengths, t, north, SideN) +
		bondEnergy(m.tiles, m.strengths, t, east, SideE) +
		bondEnergy(m.tiles, m.strengths, t, south, SideS) +
		bondEnergy(m.tiles, m.strengths, t, west, SideW)
}

func (m *ATAMModel) EventRateAt(c Canvas, p Point) Rate {
	if c.Get(p) != 0 {
		return 0
	}
	north, east, south, west := c.UVN(p), c.UVE(p), c.UVS(p), c.UVW(p)
	var total Rate
	for _, t := range m.friends.candidateTiles(m.tiles, north, east, south, west) {
		if m.bindingStrength(t, north, east, south, west) >= m.tau {
			total += m.rates[t-1]
		}
	}
	return total
}

func (m *ATAMModel) ChooseEventAt(c Canvas, p Point, acc Rate) Tile {
	north, east, south, west := c.UVN(p), c.UVE(p), c.UVS(p), c.UVW(p)
	var running Rate
	for _, t := range m.friends.candidateTiles(m.tiles, north, east, south, west) {
		if m.bindingStrength(t, north, east, south, west) < m.tau {
			continue
		}
		running += m.rates[t-1]
		if acc < running {
			return t
		}
	}
	// Floating point residue at the boundary: return the last viable
	// candidate rather than panic.
	return lastCandidate(m.friends, m.tiles, north, east, south, west, func(t Tile) bool {
		return m.bindingStrength(t, north, east, south, west) >= m.tau
	})
}

// lastCandidate returns the last tile in the fixed enumeration order
// satisfying accept, or 0 if none does. Used as the floating-point
// fallback when an accumulator lands exactly on the upper bound of the
// last bucket.
func lastCandidate(ft *friendsTable, tiles []TileDef, north, east, south, west Tile, accept func(Tile) bool) Tile {
	var last Tile
	for _, t := range ft.candidateTiles(tiles, north, east, south, west) {
		if accept(t) {
			last = t
		}
	}
	return last
}

// computeDimers enumerates every ordered pair of tile species whose
// combined edge strength across a shared boundary satisfies accept,
// producing the dimer list used to seed FFS level 0/1 and direct
// nucleation. Pairs are considered along both the NS and WE axes.
func computeDimers(tiles []TileDef, strengths []Energy, rates []Rate, accept func(Energy) bool) []Dimer {
	var dimers []Dimer
	n := len(tiles)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			t1, t2 := Tile(i+1), Tile(j+1)
			if e := bondEnergy(tiles, strengths, t2, t1, SideN); e > 0 && accept(e) {
				dimers = append(dimers, Dimer{T1: t1, T2: t2, Orientation: OrientationNS, FormationRate: rates[i] * rates[j]})
			}
			if e := bondEnergy(tiles, strengths, t2, t1, SideW); e > 0 && accept(e) {
				dimers = append(dimers, Dimer{T1: t1, T2: t2, Orientation: OrientationWE, FormationRate: rates[i] * rates[j]})
			}
		}
	}
	return dimers
}
