package tilesim

import "math"

// KTAMModel implements the kinetic Tile Assembly Model: attachment and
// detachment are both modeled, with an Arrhenius-like detachment rate
// derived from the energy a tile's bonds contribute.
//
// Kf is a global kinetic prefactor applied multiplicatively to both
// attachment and detachment rates. It rescales simulated time but
// cancels out of the forward/backward rate ratio the detailed-balance
// property checks, so its default is 1.0 when a tileset doesn't specify
// one.
type KTAMModel struct {
	tiles     []TileDef
	strengths []Energy
	rates     []Rate // attachment propensity per tile, already Gmc/alpha-scaled
	kf        Rate
	gse       Energy
	friends   *friendsTable
	dimers    []Dimer
	fission   FissionHandling
}

// KTAMParams bundles the thermodynamic/kinetic parameters named in the
// tileset parameter block (spec §6): Gmc, Gse, Alpha, Kf.
type KTAMParams struct {
	Gmc, Gse, Alpha, Kf float64
	Fission             FissionHandling
}

// NewKTAMModel builds a kTAM Model. Stoichiometries are rescaled into
// attachment rates as tile_rates[t] = stoic[t] * exp(-Gmc - Alpha), then
// globally scaled by Kf (defaulting to 1.0 if Kf is zero).
func NewKTAMModel(tiles []TileDef, strengths []Energy, p KTAMParams) *KTAMModel {
	kf := p.Kf
	if kf == 0 {
		kf = 1.0
	}
	rates := make([]Rate, len(tiles))
	scale := math.Exp(-p.Gmc-p.Alpha) * kf
	for i, td := range tiles {
		rates[i] = td.Stoic * scale
	}
	m := &KTAMModel{
		tiles:     tiles,
		strengths: strengths,
		rates:     rates,
		kf:        kf,
		gse:       p.Gse,
		friends:   buildFriendsTable(tiles),
		fission:   p.Fission,
	}
	m.dimers = computeDimers(tiles, strengths, rates, func(e Energy) bool { return true })
	return m
}

func (m *KTAMModel) NumTileTypes() int { return len(m.tiles) }

func (m *KTAMModel) Dimers() []Dimer { return m.dimers }

// FissionHandling reports the configured fission-handling policy. A
// full fission model is out of scope; this accessor exists so callers
// that care about the tileset's declared policy can inspect it.
func (m *KTAMModel) FissionHandling() FissionHandling { return m.fission }

// boundEnergy sums the Gse-scaled bond energy a tile t would receive
// from its occupied neighbors: energy_ns = Gse * glue_strength, matching
// StaticKTAM's own energy accounting. bondEnergy itself returns the raw
// glue strength (shared with the aTAM's threshold comparison, which has
// no Gse), so the Gse multiplier is applied here, once, for kTAM alone.
func (m *KTAMModel) boundEnergy(t Tile, north, east, south, west Tile) Energy {
	return m.gse * (bondEnergy(m.tiles, m.strengths, t, north, SideN) +
		bondEnergy(m.tiles, m.strengths, t, east, SideE) +
		bondEnergy(m.tiles, m.strengths, t, south, SideS) +
		bondEnergy(m.tiles, m.strengths, t, west, SideW))
}

func (m *KTAMModel) EventRateAt(c Canvas, p Point) Rate {
	t := c.Get(p)
	north, east, south, west := c.UVN(p), c.UVE(p), c.UVS(p), c.UVW(p)
	if t != 0 {
		e := m.boundEnergy(t, north, east, south, west)
		return m.kf * math.Exp(-e)
	}
	if north == 0 && east == 0 && south == 0 && west == 0 {
		return 0
	}
	var total Rate
	for _, cand := range m.friends.candidateTiles(m.tiles, north, east, south, west) {
		total += m.rates[cand-1]
	}
	return total
}

func (m *KTAMModel) ChooseEventAt(c Canvas, p Point, acc Rate) Tile {
	t := c.Get(p)
	if t != 0 {
		// Detachment is the only event an occupied site can produce.
		return 0
	}
	north, east, south, west := c.UVN(p), c.UVE(p), c.UVS(p), c.UVW(p)
	var running Rate
	var last Tile
	for _, cand := range m.friends.candidateTiles(m.tiles, north, east, south, west) {
		running += m.rates[cand-1]
		last = cand
		if acc < running {
			return cand
		}
	}
	return last
}
