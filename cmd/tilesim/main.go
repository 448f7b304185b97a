// Command tilesim runs tile self-assembly simulations and nucleation
// rate estimates from a tileset document.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tilesim/tilesim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tilesim",
		Short:         "Stochastic tile self-assembly simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newFFSCmd(), newNucRateCmd())
	return root
}

func loadModel(path string, kind string) (tilesim.Model, error) {
	doc, err := tilesim.LoadTilesetFile(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "atam":
		return doc.BuildATAM()
	default:
		return doc.BuildKTAM()
	}
}

func newRunCmd() *cobra.Command {
	var (
		tileset    string
		modelKind  string
		canvasSize int
		variant    string
		events     uint64
		seed       int64
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single bounded evolution and print a final-state summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(tileset, modelKind)
			if err != nil {
				return err
			}
			logger := tilesim.NewDefaultLogger("tilesim", debug)
			rng := rand.New(rand.NewSource(seed))
			s, err := tilesim.InitDimer(canvasSize, parseVariant(variant), model, rng)
			if err != nil {
				return err
			}
			bounds := tilesim.EvolveBounds{Events: &events}
			outcome := tilesim.Evolve(s, model, rng, bounds, logger)
			fmt.Printf("outcome=%s n_tiles=%d events=%d time=%g\n", outcome, s.NTiles, s.TotalEvents, s.Time)
			return nil
		},
	}
	cmd.Flags().StringVar(&tileset, "tileset", "", "path to a tileset document (required)")
	cmd.Flags().StringVar(&modelKind, "model", "ktam", "model variant: ktam or atam")
	cmd.Flags().IntVar(&canvasSize, "canvas-size", 64, "canvas side length")
	cmd.Flags().StringVar(&variant, "canvas", "periodic", "canvas variant: square, periodic, or tube")
	cmd.Flags().Uint64Var(&events, "events", 10000, "number of events to evolve")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "RNG seed")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.MarkFlagRequired("tileset")
	return cmd
}

func newFFSCmd() *cobra.Command {
	var (
		tileset    string
		variant    string
		seed       int64
		debug      bool
		targetSize int
		startSize  int
		minConfigs int
		maxConfigs int
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "ffs",
		Short: "Run Forward Flux Sampling and print the rate estimate",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(tileset, "ktam")
			if err != nil {
				return err
			}
			logger := tilesim.NewDefaultLogger("tilesim", debug)
			rng := rand.New(rand.NewSource(seed))
			cfg := tilesim.NewFFSConfig()
			cfg.CanvasVariant = parseVariant(variant)
			if targetSize > 0 {
				cfg.TargetSize = tilesim.NumTiles(targetSize)
			}
			if startSize > 0 {
				cfg.StartSize = tilesim.NumTiles(startSize)
			}
			if minConfigs > 0 {
				cfg.MinConfigs = minConfigs
			}
			if maxConfigs > 0 {
				cfg.MaxConfigs = maxConfigs
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			result, err := tilesim.RunFFS(model, cfg, rng, logger)
			if err != nil {
				return err
			}
			fmt.Printf("run=%s nucleation_rate=%g dimerization_rate=%g forward_prob=%v\n",
				result.RunID, result.NucleationRate(), result.DimerizationRate, result.ForwardProb)
			return nil
		},
	}
	cmd.Flags().StringVar(&tileset, "tileset", "", "path to a tileset document (required)")
	cmd.Flags().StringVar(&variant, "canvas", "periodic", "canvas variant: square, periodic, or tube")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "RNG seed")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().IntVar(&targetSize, "target-size", 0, "override the default target assembly size")
	cmd.Flags().IntVar(&startSize, "start-size", 0, "override the level-1 size threshold")
	cmd.Flags().IntVar(&minConfigs, "min-configs", 0, "override the minimum samples per level")
	cmd.Flags().IntVar(&maxConfigs, "max-configs", 0, "override the maximum samples per level")
	cmd.Flags().IntVar(&workers, "workers", 1, "number of concurrent growth trials per level")
	cmd.MarkFlagRequired("tileset")
	return cmd
}

func newNucRateCmd() *cobra.Command {
	ffs := newFFSCmd()
	cmd := &cobra.Command{
		Use:   "nuc-rate",
		Short: "Run ffs and print only the scalar nucleation rate; of the ffs flags, uses --tileset, --canvas, --seed and --workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			tileset, _ := cmd.Flags().GetString("tileset")
			variant, _ := cmd.Flags().GetString("canvas")
			seed, _ := cmd.Flags().GetInt64("seed")
			workers, _ := cmd.Flags().GetInt("workers")

			model, err := loadModel(tileset, "ktam")
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed))
			cfg := tilesim.NewFFSConfig()
			cfg.CanvasVariant = parseVariant(variant)
			if workers > 0 {
				cfg.Workers = workers
			}
			result, err := tilesim.RunFFS(model, cfg, rng, nil)
			if err != nil {
				return err
			}
			fmt.Println(result.NucleationRate())
			return nil
		},
	}
	cmd.Flags().AddFlagSet(ffs.Flags())
	cmd.MarkFlagRequired("tileset")
	return cmd
}

func parseVariant(s string) tilesim.CanvasVariant {
	switch s {
	case "square":
		return tilesim.VariantSquare
	case "tube":
		return tilesim.VariantTube
	default:
		return tilesim.VariantPeriodic
	}
}
