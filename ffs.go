package tilesim

import (
	"math/rand"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// FFSConfig configures a Forward Flux Sampling run. Defaults mirror the
// reference sampler's: constant-variance accumulation with an early
// cutoff once the forward probability saturates near the nucleation
// barrier.
type FFSConfig struct {
	ConstantVariance  bool
	VarPerMean2       float64
	MinConfigs        int
	MaxConfigs        int
	EarlyCutoff       bool
	CutoffProbability float64
	CutoffNumber      int
	MinCutoffSize     NumTiles
	InitBound         EvolveBounds
	SubseqBound       EvolveBounds
	StartSize         NumTiles
	SizeStep          NumTiles
	KeepConfigs       bool
	MinNucRate        *Rate
	CanvasSize        int
	CanvasVariant     CanvasVariant
	TargetSize        NumTiles

	// Workers bounds how many growth trials nextLevel runs concurrently.
	// 1 (the default) runs trials sequentially on the calling goroutine,
	// matching a single-threaded run bit-for-bit given the same rng
	// stream; values above 1 run a bounded worker pool. With a pool, how
	// many trials each worker runs depends on goroutine scheduling, so
	// PR, NumTrials, the states in Configs and their count (which can
	// exceed MaxConfigs by up to Workers-1) are not reproducible from the
	// rng seed.
	Workers int

	// maxTrialsPerLevel bounds the retry loop when a level's forward
	// probability is so low that max_configs would never be reached; 0
	// means unbounded. Not part of the original parameter surface, but
	// needed so a misconfigured run terminates instead of looping
	// forever.
	maxTrialsPerLevel int
}

func evolveBoundsWithTime(t float64) EvolveBounds {
	tt := t
	return EvolveBounds{Time: &tt}
}

// NewFFSConfig returns the default configuration.
func NewFFSConfig() FFSConfig {
	return FFSConfig{
		ConstantVariance:  true,
		VarPerMean2:       0.01,
		MinConfigs:        1000,
		MaxConfigs:        100000,
		EarlyCutoff:       true,
		CutoffProbability: 0.99,
		CutoffNumber:      4,
		MinCutoffSize:     30,
		InitBound:         evolveBoundsWithTime(1e7),
		SubseqBound:       evolveBoundsWithTime(1e7),
		StartSize:         3,
		SizeStep:          1,
		KeepConfigs:       false,
		Workers:           1,
		CanvasSize:        64,
		CanvasVariant:     VariantPeriodic,
		TargetSize:        100,
		maxTrialsPerLevel: 20_000_000,
	}
}

// FFSLevel is one stored interface in the ladder: the ensemble of States
// that first crossed TargetSize, each tagged with the index of the
// parent state (in the previous level) it was cloned from.
type FFSLevel struct {
	Configs      []*State
	PreviousList []int
	PR           float64
	NumTrials    int
	TargetSize   NumTiles
}

func (l *FFSLevel) NumConfigs() int { return len(l.Configs) }

// GetConfig returns the stored canvas at index i.
func (l *FFSLevel) GetConfig(i int) Canvas { return l.Configs[i].Canvas }

// FFSResult is the outcome of a full FFS run: the level ladder, the
// per-level forward probabilities, and the dimerization rate that
// anchors the nucleation-rate product.
type FFSResult struct {
	RunID            string
	Levels           []*FFSLevel
	ForwardProb      []float64
	DimerizationRate Rate
}

// NucleationRate returns k_dimer * Π p_ℓ.
func (r *FFSResult) NucleationRate() Rate {
	rate := r.DimerizationRate
	for _, p := range r.ForwardProb {
		rate *= p
	}
	return rate
}

func variance_over_mean2(numSuccess, numTrials int) float64 {
	if numSuccess == 0 {
		return 1
	}
	p := float64(numSuccess) / float64(numTrials)
	return (1 - p) / float64(numSuccess)
}

// RunFFS runs a full Forward Flux Sampling estimation of the nucleation
// rate for model, using rng for all random draws (dimer selection,
// parent selection, and the per-step Gillespie draws). With cfg.Workers
// at most 1, the levels and forward probabilities are deterministic for
// a fixed rng and cfg; RunID is a fresh random UUID on every call.
func RunFFS(model Model, cfg FFSConfig, rng *rand.Rand, logger Logger) (*FFSResult, error) {
	if logger == nil {
		logger = NewNopLogger()
	}
	if _, isATAM := model.(*ATAMModel); isATAM {
		return nil, newConfigError(FFSUnsupportedModel, "aTAM has no detachment events")
	}

	dimers := model.Dimers()
	dimerRate := lo.SumBy(dimers, func(d Dimer) Rate { return d.FormationRate })

	level1, level0, err := nmersFromDimers(model, cfg, rng, logger)
	if err != nil {
		return nil, err
	}

	result := &FFSResult{
		RunID:            uuid.NewString(),
		DimerizationRate: dimerRate,
		Levels:           []*FFSLevel{level0, level1},
		ForwardProb:      []float64{level1.PR},
	}

	currentSize := level1.TargetSize
	aboveCutoff := 0

	for currentSize < cfg.TargetSize {
		last := result.Levels[len(result.Levels)-1]
		next, err := nextLevel(last, model, cfg, rng, logger)
		if err != nil {
			return nil, err
		}
		if !cfg.KeepConfigs {
			last.Configs = nil
		}
		result.ForwardProb = append(result.ForwardProb, next.PR)
		currentSize = next.TargetSize
		result.Levels = append(result.Levels, next)
		logger.Infof("ffs run=%s level target_size=%d p_r=%.4g trials=%d states=%d",
			result.RunID, next.TargetSize, next.PR, next.NumTrials, next.NumConfigs())

		if cfg.EarlyCutoff {
			if next.PR > cfg.CutoffProbability {
				aboveCutoff++
				if aboveCutoff >= cfg.CutoffNumber && currentSize >= cfg.MinCutoffSize {
					break
				}
			} else {
				aboveCutoff = 0
			}
		}

		if cfg.MinNucRate != nil && result.NucleationRate() < *cfg.MinNucRate {
			break
		}
	}

	return result, nil
}

// nmersFromDimers builds Level 1 (states that have grown to
// cfg.StartSize tiles) and the synthetic Level 0 (the dimer
// configuration each Level 1 state was seeded from).
func nmersFromDimers(model Model, cfg FFSConfig, rng *rand.Rand, logger Logger) (level1, level0 *FFSLevel, err error) {
	dimers := model.Dimers()
	if len(dimers) == 0 {
		return nil, nil, newConfigError(UnknownModelVariant, "model has no dimers for FFS seeding")
	}

	bounds := cfg.SubseqBound
	targetSize := cfg.StartSize
	bounds.SizeMax = &targetSize
	zero := NumTiles(0)
	bounds.SizeMin = &zero

	var configs []*State
	var dimerConfigs []*State
	var previousList []int
	trials := 0
	cvar := cfg.VarPerMean2
	if !cfg.ConstantVariance {
		cvar = 0
	}

	for len(configs) < cfg.MaxConfigs {
		if cfg.maxTrialsPerLevel > 0 && trials >= cfg.maxTrialsPerLevel {
			break
		}
		s, dimer, err := InitDimerChoice(cfg.CanvasSize, cfg.CanvasVariant, model, rng)
		if err != nil {
			return nil, nil, err
		}
		Evolve(s, model, rng, bounds, logger)
		trials++

		if s.NTiles >= targetSize { // inclusive per the documented duples resolution
			dimerState, err := placeDimer(cfg.CanvasSize, cfg.CanvasVariant, model, dimer)
			if err != nil {
				return nil, nil, err
			}
			configs = append(configs, s)
			dimerConfigs = append(dimerConfigs, dimerState)
			previousList = append(previousList, len(configs)-1)
		}

		if variance_over_mean2(len(configs), trials) < cvar && len(configs) >= cfg.MinConfigs {
			break
		}
	}

	pr := float64(len(configs)) / float64(max(trials, 1))
	level1 = &FFSLevel{Configs: configs, PreviousList: lo.Range(len(configs)), PR: pr, NumTrials: trials, TargetSize: targetSize}
	level0 = &FFSLevel{Configs: dimerConfigs, PreviousList: previousList, PR: 1.0, NumTrials: len(configs), TargetSize: 2}
	return level1, level0, nil
}

// nextLevel implements FFSLevel.next_level: clone a uniformly-chosen
// parent from prev, evolve it under cfg.SubseqBound toward
// prev.TargetSize + cfg.SizeStep, and accumulate successes until the
// level's stopping rule fires.
func nextLevel(prev *FFSLevel, model Model, cfg FFSConfig, rng *rand.Rand, logger Logger) (*FFSLevel, error) {
	if len(prev.Configs) == 0 {
		return nil, newConfigError(UnknownModelVariant, "previous FFS level has no stored configurations")
	}
	targetSize := prev.TargetSize + cfg.SizeStep

	bounds := cfg.SubseqBound
	bounds.SizeMax = &targetSize
	zero := NumTiles(0)
	bounds.SizeMin = &zero

	cvar := cfg.VarPerMean2
	if !cfg.ConstantVariance {
		cvar = 0
	}
	stopped := func(numSuccess, numTrials int) bool {
		return variance_over_mean2(numSuccess, numTrials) < cvar && numSuccess >= cfg.MinConfigs
	}

	var configs []*State
	var previousList []int
	var trials int
	var err error

	if cfg.Workers > 1 {
		configs, previousList, trials, err = nextLevelParallel(prev, model, cfg, bounds, rng, logger, stopped)
	} else {
		configs, previousList, trials, err = nextLevelSequential(prev, model, cfg, bounds, rng, logger, stopped)
	}
	if err != nil {
		return nil, err
	}

	pr := float64(len(configs)) / float64(max(trials, 1))
	return &FFSLevel{
		Configs:      configs,
		PreviousList: previousList,
		PR:           pr,
		NumTrials:    trials,
		TargetSize:   targetSize,
	}, nil
}

func nextLevelSequential(prev *FFSLevel, model Model, cfg FFSConfig, bounds EvolveBounds, rng *rand.Rand, logger Logger, stopped func(int, int) bool) ([]*State, []int, int, error) {
	var configs []*State
	var previousList []int
	trials := 0

	for len(configs) < cfg.MaxConfigs {
		if cfg.maxTrialsPerLevel > 0 && trials >= cfg.maxTrialsPerLevel {
			break
		}
		parentIdx := rng.Intn(len(prev.Configs))
		clone, err := prev.Configs[parentIdx].Clone(model)
		if err != nil {
			return nil, nil, 0, err
		}
		Evolve(clone, model, rng, bounds, logger)
		trials++

		if clone.NTiles >= bounds.sizeMaxOr(0) {
			configs = append(configs, clone)
			previousList = append(previousList, parentIdx)
		}

		if stopped(len(configs), trials) {
			break
		}
	}
	return configs, previousList, trials, nil
}

// nextLevelParallel runs the same per-trial work as nextLevelSequential
// across a bounded pool of goroutines, each with its own *rand.Rand
// derived from a sequential draw off the caller's rng (so the worker
// seeds themselves are reproducible given a fixed rng stream and worker
// count). Workers race to append to a shared, mutex-guarded accumulator
// and stop once the level's stopping rule or its size caps are hit; the
// result therefore depends on scheduling and is not reproducible.
func nextLevelParallel(prev *FFSLevel, model Model, cfg FFSConfig, bounds EvolveBounds, rng *rand.Rand, logger Logger, stopped func(int, int) bool) ([]*State, []int, int, error) {
	workers := cfg.Workers
	if max := runtime.GOMAXPROCS(0); workers > max {
		workers = max
	}
	targetSize := *bounds.SizeMax

	var mu sync.Mutex
	var configs []*State
	var previousList []int
	trials := 0
	done := false
	var firstErr error

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		workerRng := rand.New(rand.NewSource(rng.Int63()))
		go func(workerRng *rand.Rand) {
			defer wg.Done()
			for {
				mu.Lock()
				stop := done || len(configs) >= cfg.MaxConfigs || firstErr != nil ||
					(cfg.maxTrialsPerLevel > 0 && trials >= cfg.maxTrialsPerLevel)
				mu.Unlock()
				if stop {
					return
				}

				parentIdx := workerRng.Intn(len(prev.Configs))
				clone, err := prev.Configs[parentIdx].Clone(model)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				Evolve(clone, model, workerRng, bounds, logger)

				mu.Lock()
				trials++
				if clone.NTiles >= targetSize {
					configs = append(configs, clone)
					previousList = append(previousList, parentIdx)
				}
				if stopped(len(configs), trials) {
					done = true
				}
				mu.Unlock()
			}
		}(workerRng)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, 0, firstErr
	}
	return configs, previousList, trials, nil
}

func (b EvolveBounds) sizeMaxOr(def NumTiles) NumTiles {
	if b.SizeMax != nil {
		return *b.SizeMax
	}
	return def
}
