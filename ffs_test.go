package tilesim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func smallKTAMForFFS() *KTAMModel {
	tiles := []TileDef{
		{Edges: [4]Glue{1, 1, 1, 1}, Stoic: 1.0},
	}
	// strength deliberately != Gse (see ktam_test.go).
	strengths := []Energy{0, 1.0}
	return NewKTAMModel(tiles, strengths, KTAMParams{Gmc: 16, Gse: 8.1, Alpha: 0, Kf: 1})
}

// Scenario C: FFS smoke test. Forward probability vector length must
// equal target_size - start_size + 1, the nucleation rate must be
// positive, and the first level must meet its minimum sample count.
func TestScenarioC_FFSSmoke(t *testing.T) {
	model := smallKTAMForFFS()
	cfg := NewFFSConfig()
	cfg.CanvasSize = 32
	cfg.StartSize = 3
	cfg.SizeStep = 1
	cfg.TargetSize = 8
	cfg.MinConfigs = 20
	cfg.MaxConfigs = 60
	cfg.ConstantVariance = false // exercise the max_configs-only path for a bounded test
	cfg.KeepConfigs = true       // level 1's states are counted after the run
	rng := rand.New(rand.NewSource(11))

	result, err := RunFFS(model, cfg, rng, nil)
	require.NoError(t, err)

	require.Equal(t, int(cfg.TargetSize-cfg.StartSize)+1, len(result.ForwardProb))
	require.Greater(t, result.NucleationRate(), 0.0)
	require.GreaterOrEqual(t, result.Levels[1].NumConfigs(), cfg.MinConfigs)
}

// Scenario D: early cutoff. With a low cutoff threshold the driver
// should stop before reaching target_size once enough consecutive
// levels exceed cutoff_probability at or above min_cutoff_size.
func TestScenarioD_EarlyCutoff(t *testing.T) {
	model := smallKTAMForFFS()
	cfg := NewFFSConfig()
	cfg.CanvasSize = 32
	cfg.StartSize = 3
	cfg.SizeStep = 1
	cfg.TargetSize = 40
	cfg.MinConfigs = 10
	cfg.MaxConfigs = 15
	cfg.ConstantVariance = false
	cfg.EarlyCutoff = true
	cfg.CutoffProbability = 0.0 // every level clears this, forcing an early stop
	cfg.CutoffNumber = 2
	cfg.MinCutoffSize = 4
	rng := rand.New(rand.NewSource(12))

	result, err := RunFFS(model, cfg, rng, nil)
	require.NoError(t, err)

	lastLevel := result.Levels[len(result.Levels)-1]
	require.Less(t, lastLevel.TargetSize, cfg.TargetSize)
}

// Invariant 6: every forward probability lies in (0, 1], and p_0 (the
// Level-0 dimer reconstruction's reported probability) is exactly 1.
func TestFFSProbabilityBounds(t *testing.T) {
	model := smallKTAMForFFS()
	cfg := NewFFSConfig()
	cfg.CanvasSize = 32
	cfg.StartSize = 3
	cfg.SizeStep = 1
	cfg.TargetSize = 6
	cfg.MinConfigs = 10
	cfg.MaxConfigs = 30
	cfg.ConstantVariance = false
	rng := rand.New(rand.NewSource(13))

	result, err := RunFFS(model, cfg, rng, nil)
	require.NoError(t, err)

	require.Equal(t, 1.0, result.Levels[0].PR)
	for i, p := range result.ForwardProb {
		require.Greaterf(t, p, 0.0, "level %d forward probability must be > 0", i)
		require.LessOrEqualf(t, p, 1.0, "level %d forward probability must be <= 1", i)
	}
}

// TestScenarioC_FFSSmokeParallel exercises the worker-pool path: the
// same aggregate-level properties (forward probability bounds, positive
// nucleation rate) must hold when growth trials run concurrently.
func TestScenarioC_FFSSmokeParallel(t *testing.T) {
	model := smallKTAMForFFS()
	cfg := NewFFSConfig()
	cfg.CanvasSize = 32
	cfg.StartSize = 3
	cfg.SizeStep = 1
	cfg.TargetSize = 8
	cfg.MinConfigs = 20
	cfg.MaxConfigs = 60
	cfg.ConstantVariance = false
	cfg.Workers = 4
	rng := rand.New(rand.NewSource(14))

	result, err := RunFFS(model, cfg, rng, nil)
	require.NoError(t, err)

	require.Equal(t, int(cfg.TargetSize-cfg.StartSize)+1, len(result.ForwardProb))
	require.Greater(t, result.NucleationRate(), 0.0)
	for i, p := range result.ForwardProb {
		require.Greaterf(t, p, 0.0, "level %d forward probability must be > 0", i)
		require.LessOrEqualf(t, p, 1.0, "level %d forward probability must be <= 1", i)
	}
}

func TestRunFFSRejectsATAM(t *testing.T) {
	tiles := []TileDef{{Edges: [4]Glue{1, 1, 1, 1}, Stoic: 1.0}}
	model := NewATAMModel(tiles, []Energy{0, 1.0}, 1.0)
	rng := rand.New(rand.NewSource(1))
	_, err := RunFFS(model, NewFFSConfig(), rng, nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, FFSUnsupportedModel, cfgErr.Kind)
}
