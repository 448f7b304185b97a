package tilesim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// GlueIdent is a glue reference as written in a tileset document: either
// a bare name or a dense integer id. Either form decodes from JSON and
// YAML; GlueIdent has no custom encoder, so encoding it writes its
// struct fields rather than the original name or number.
type GlueIdent struct {
	Name string
	Num  *int
	set  bool
}

func (g GlueIdent) String() string {
	if g.Num != nil {
		return fmt.Sprintf("%d", *g.Num)
	}
	return g.Name
}

func (g *GlueIdent) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		g.Num = &n
		g.set = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("glue identifier must be a string or integer: %w", err)
	}
	g.Name = s
	g.set = true
	return nil
}

func (g *GlueIdent) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		g.Num = &n
		g.set = true
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("glue identifier must be a string or integer: %w", err)
	}
	g.Name = s
	g.set = true
	return nil
}

// TileRecord is one tile species as written in a tileset document.
type TileRecord struct {
	Name  string      `json:"name,omitempty" yaml:"name,omitempty"`
	Edges []GlueIdent `json:"edges" yaml:"edges"`
	Stoic *float64    `json:"stoic,omitempty" yaml:"stoic,omitempty"`
	Color string      `json:"color,omitempty" yaml:"color,omitempty"`
}

func (t TileRecord) stoic() float64 {
	if t.Stoic != nil {
		return *t.Stoic
	}
	return 1.0
}

// BondRecord declares a named glue's strength; the bond list is
// authoritative over strengths tiles merely reference.
type BondRecord struct {
	Name     GlueIdent `json:"name" yaml:"name"`
	Strength float64   `json:"strength" yaml:"strength"`
}

// ParamsRecord is the tileset's thermodynamic/kinetic/runtime parameter
// block, read from the document's `options` key. Unset fields fall back
// to the documented defaults when consumed; tau has no default.
type ParamsRecord struct {
	Gse        *float64 `json:"gse,omitempty" yaml:"gse,omitempty"`
	Gmc        *float64 `json:"gmc,omitempty" yaml:"gmc,omitempty"`
	Alpha      *float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Kf         *float64 `json:"kf,omitempty" yaml:"kf,omitempty"`
	Tau        *float64 `json:"tau,omitempty" yaml:"tau,omitempty"`
	Size       *int     `json:"size,omitempty" yaml:"size,omitempty"`
	Seed       *int     `json:"seed,omitempty" yaml:"seed,omitempty"`
	Smax       *int     `json:"smax,omitempty" yaml:"smax,omitempty"`
	UpdateRate *int     `json:"update_rate,omitempty" yaml:"update_rate,omitempty"`
}

func (p ParamsRecord) gse() float64   { return orDefault(p.Gse, 8.0) }
func (p ParamsRecord) gmc() float64   { return orDefault(p.Gmc, 16.0) }
func (p ParamsRecord) alpha() float64 { return orDefault(p.Alpha, 0.0) }
func (p ParamsRecord) kf() float64    { return orDefault(p.Kf, 1.0) }
func (p ParamsRecord) size() int      { return orDefaultInt(p.Size, 32) }
func (p ParamsRecord) updateRate() int {
	return orDefaultInt(p.UpdateRate, 1000)
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

func orDefaultInt(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

// TilesetDoc is a parsed tileset document: tile species, the glue
// strength table, and the parameter block. It is the external,
// human-authored form a Model is built from.
type TilesetDoc struct {
	Tiles   []TileRecord `json:"tiles" yaml:"tiles"`
	Bonds   []BondRecord `json:"bonds" yaml:"bonds"`
	Options ParamsRecord `json:"options" yaml:"options"`
}

// LoadTilesetFile reads and parses a tileset document, selecting JSON
// or YAML by file extension (.json, .yaml, .yml).
func LoadTilesetFile(path string) (*TilesetDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tileset %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseTilesetYAML(data)
	default:
		return ParseTilesetJSON(data)
	}
}

// ParseTilesetJSON parses a tileset document encoded as JSON.
func ParseTilesetJSON(data []byte) (*TilesetDoc, error) {
	var doc TilesetDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tileset JSON: %w", err)
	}
	return &doc, nil
}

// ParseTilesetYAML parses a tileset document encoded as YAML.
func ParseTilesetYAML(data []byte) (*TilesetDoc, error) {
	var doc TilesetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing tileset YAML: %w", err)
	}
	return &doc, nil
}

// internedGlues maps glue names to dense ids and carries the dense
// strength table, indexed by id with 0 reserved for the null glue.
type internedGlues struct {
	ids       map[string]Glue
	strengths []Energy
}

// internGlues implements the glue-interning pass: bonds are authoritative
// (a name/strength declared twice with different strengths is an
// error), then tile edges fill in any remaining glue at the default
// strength of 1.0.
func internGlues(doc *TilesetDoc) (*internedGlues, error) {
	ids := map[string]Glue{"0": 0}
	strengthByID := map[Glue]Energy{0: 0}
	next := Glue(1)

	nameOf := func(g GlueIdent) string {
		if g.Num != nil {
			return fmt.Sprintf("%d", *g.Num)
		}
		return g.Name
	}

	for _, b := range doc.Bonds {
		key := nameOf(b.Name)
		id, known := ids[key]
		if b.Name.Num != nil {
			id = Glue(*b.Name.Num)
			known = true
			ids[key] = id
			if id >= next {
				next = id + 1
			}
		}
		if !known {
			id = next
			ids[key] = id
			next++
		}
		if existing, ok := strengthByID[id]; ok && id != 0 {
			if existing != b.Strength {
				return nil, newConfigError(GlueConflict, "glue %q declared with strengths %v and %v", key, existing, b.Strength)
			}
		}
		strengthByID[id] = b.Strength
	}

	for _, tile := range doc.Tiles {
		for _, e := range tile.Edges {
			if e.Num != nil && *e.Num == 0 {
				continue
			}
			key := nameOf(e)
			id, known := ids[key]
			if e.Num != nil {
				id = Glue(*e.Num)
				known = true
				if _, ok := ids[key]; !ok {
					ids[key] = id
					if id >= next {
						next = id + 1
					}
				}
			}
			if !known {
				id = next
				ids[key] = id
				next++
			}
			if _, ok := strengthByID[id]; !ok {
				strengthByID[id] = 1.0
			}
		}
	}

	maxID := Glue(0)
	for id := range strengthByID {
		if id > maxID {
			maxID = id
		}
	}
	strengths := make([]Energy, maxID+1)
	for id, s := range strengthByID {
		strengths[id] = s
	}

	return &internedGlues{ids: ids, strengths: strengths}, nil
}

func (ig *internedGlues) resolve(e GlueIdent) Glue {
	if e.Num != nil {
		return Glue(*e.Num)
	}
	return ig.ids[e.Name]
}

// tileDefs translates the document's tile records into TileDef values,
// resolving each edge glue against the interned table.
func (doc *TilesetDoc) tileDefs(ig *internedGlues) []TileDef {
	return lo.Map(doc.Tiles, func(tile TileRecord, _ int) TileDef {
		var edges [4]Glue
		for s := 0; s < 4 && s < len(tile.Edges); s++ {
			edges[s] = ig.resolve(tile.Edges[s])
		}
		return TileDef{Edges: edges, Stoic: tile.stoic()}
	})
}

// BuildKTAM translates the document into a KTAMModel, applying the
// documented Gmc/Gse/Alpha/Kf defaults for any field left unset.
func (doc *TilesetDoc) BuildKTAM() (*KTAMModel, error) {
	ig, err := internGlues(doc)
	if err != nil {
		return nil, err
	}
	tiles := doc.tileDefs(ig)
	params := KTAMParams{
		Gmc:   doc.Options.gmc(),
		Gse:   doc.Options.gse(),
		Alpha: doc.Options.alpha(),
		Kf:    doc.Options.kf(),
	}
	return NewKTAMModel(tiles, ig.strengths, params), nil
}

// BuildATAM translates the document into an ATAMModel. The aTAM binding
// threshold tau must be present in the document's parameter block.
func (doc *TilesetDoc) BuildATAM() (*ATAMModel, error) {
	if doc.Options.Tau == nil {
		return nil, newConfigError(UnknownModelVariant, "aTAM tileset requires options.tau")
	}
	ig, err := internGlues(doc)
	if err != nil {
		return nil, err
	}
	tiles := doc.tileDefs(ig)
	return NewATAMModel(tiles, ig.strengths, *doc.Options.Tau), nil
}

// CanvasSize returns the document's declared canvas size, or 32 if unset.
func (doc *TilesetDoc) CanvasSize() int { return doc.Options.size() }

// UpdateRate returns the document's declared progress-logging interval
// (in events), or 1000 if unset.
func (doc *TilesetDoc) UpdateRate() int { return doc.Options.updateRate() }

// glueNamesSorted is a debugging/logging helper: the interned glue names
// in ascending id order, skipping the reserved null glue.
func (ig *internedGlues) glueNamesSorted() []string {
	type pair struct {
		name string
		id   Glue
	}
	pairs := make([]pair, 0, len(ig.ids))
	for name, id := range ig.ids {
		if id == 0 {
			continue
		}
		pairs = append(pairs, pair{name, id})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.name
	}
	return names
}
