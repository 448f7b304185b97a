package tilesim

import "testing"

const sampleTilesetJSON = `{
  "tiles": [
    {"name": "seed", "edges": ["a", "b", "a", "b"], "stoic": 0},
    {"name": "grow", "edges": ["a", "b", "a", "b"], "stoic": 1.0}
  ],
  "bonds": [
    {"name": "a", "strength": 2.0},
    {"name": "b", "strength": 3.0}
  ],
  "options": {"gse": 8.1, "gmc": 16, "size": 32}
}`

const sampleTilesetYAML = `
tiles:
  - name: seed
    edges: [a, b, a, b]
    stoic: 0
  - name: grow
    edges: [a, b, a, b]
    stoic: 1.0
bonds:
  - name: a
    strength: 2.0
  - name: b
    strength: 3.0
options:
  gse: 8.1
  gmc: 16
  size: 32
`

func TestParseTilesetJSON(t *testing.T) {
	doc, err := ParseTilesetJSON([]byte(sampleTilesetJSON))
	if err != nil {
		t.Fatalf("ParseTilesetJSON: %v", err)
	}
	if len(doc.Tiles) != 2 {
		t.Fatalf("expected 2 tiles, got %d", len(doc.Tiles))
	}
	if doc.CanvasSize() != 32 {
		t.Errorf("expected canvas size 32, got %d", doc.CanvasSize())
	}
}

func TestParseTilesetYAMLMatchesJSON(t *testing.T) {
	jsonDoc, err := ParseTilesetJSON([]byte(sampleTilesetJSON))
	if err != nil {
		t.Fatalf("ParseTilesetJSON: %v", err)
	}
	yamlDoc, err := ParseTilesetYAML([]byte(sampleTilesetYAML))
	if err != nil {
		t.Fatalf("ParseTilesetYAML: %v", err)
	}
	if len(jsonDoc.Tiles) != len(yamlDoc.Tiles) {
		t.Fatalf("tile count mismatch: json=%d yaml=%d", len(jsonDoc.Tiles), len(yamlDoc.Tiles))
	}
}

func TestInternGluesReservesZeroAndDedupesNames(t *testing.T) {
	doc, err := ParseTilesetJSON([]byte(sampleTilesetJSON))
	if err != nil {
		t.Fatalf("ParseTilesetJSON: %v", err)
	}
	ig, err := internGlues(doc)
	if err != nil {
		t.Fatalf("internGlues: %v", err)
	}
	if ig.ids["0"] != 0 {
		t.Errorf("expected null glue reserved at id 0")
	}
	idA, okA := ig.ids["a"]
	idB, okB := ig.ids["b"]
	if !okA || !okB {
		t.Fatalf("expected glues a and b to be interned")
	}
	if idA == 0 || idB == 0 || idA == idB {
		t.Errorf("expected distinct non-zero ids for a and b, got %d and %d", idA, idB)
	}
	if ig.strengths[idA] != 2.0 || ig.strengths[idB] != 3.0 {
		t.Errorf("expected bond strengths to carry through: a=%v b=%v", ig.strengths[idA], ig.strengths[idB])
	}
}

func TestInternGluesRejectsConflictingStrengths(t *testing.T) {
	const doc = `{
		"tiles": [{"edges": ["a","a","a","a"]}],
		"bonds": [{"name": "a", "strength": 1.0}, {"name": "a", "strength": 2.0}],
		"options": {}
	}`
	parsed, err := ParseTilesetJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ParseTilesetJSON: %v", err)
	}
	if _, err := internGlues(parsed); err == nil {
		t.Errorf("expected conflicting glue strengths to error")
	}
}

func TestBuildKTAMAppliesDefaults(t *testing.T) {
	doc, err := ParseTilesetJSON([]byte(sampleTilesetJSON))
	if err != nil {
		t.Fatalf("ParseTilesetJSON: %v", err)
	}
	model, err := doc.BuildKTAM()
	if err != nil {
		t.Fatalf("BuildKTAM: %v", err)
	}
	if model.NumTileTypes() != 2 {
		t.Errorf("expected 2 tile types, got %d", model.NumTileTypes())
	}
	// The sample sets no kf, so the documented default of 1.0 applies.
	if model.kf != 1.0 {
		t.Errorf("expected default kf 1.0, got %v", model.kf)
	}
}

func TestBuildATAMRequiresTau(t *testing.T) {
	doc, err := ParseTilesetJSON([]byte(sampleTilesetJSON))
	if err != nil {
		t.Fatalf("ParseTilesetJSON: %v", err)
	}
	if _, err := doc.BuildATAM(); err == nil {
		t.Errorf("expected missing tau to error")
	}
}
