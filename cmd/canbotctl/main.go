package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"canbot/internal/metrics"
	"canbot/internal/model"
	"canbot/internal/stats"
	"canbot/internal/storage"
	"canbot/pkg/canbot"
)

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "canbot.db"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "smoke":
		return runSmoke(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "champion":
		return runChampion(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type storeFlags struct {
	storeKind *string
	dbPath    *string
	outDir    *string
	logLevel  *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", defaultDBPath, "sqlite database path"),
		outDir:    fs.String("out", defaultArtifactsDir, "run artifacts directory"),
		logLevel:  fs.String("log-level", "info", "log level: debug|info|warn|error"),
	}
}

func (f storeFlags) client(m *metrics.Recorder) (*canbot.Client, error) {
	logger, err := newLogger(*f.logLevel)
	if err != nil {
		return nil, err
	}
	return canbot.New(canbot.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.outDir,
		Logger:       logger,
		Metrics:      m,
	})
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	width := fs.Int("width", canbot.DefaultGridWidth, "grid width")
	height := fs.Int("height", canbot.DefaultGridHeight, "grid height")
	fill := fs.Float64("fill", canbot.DefaultFillProbability, "probability that a cell starts with a can")
	population := fs.Int("pop", canbot.DefaultPopulation, "population size")
	mutations := fs.Int("mutations", canbot.DefaultMutationEvents, "mutation events per child (0 disables mutation)")
	maxSteps := fs.Int("steps", canbot.DefaultMaxSteps, "simulation steps per trial")
	generations := fs.Int("gens", canbot.DefaultGenerations, "generations bred after the initial population")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 0, "evaluation workers (0 uses GOMAXPROCS)")
	defaultRewards := canbot.DefaultRewards()
	rewardPick := fs.Float64("reward-pick", defaultRewards.PickSuccess, "reward for collecting a can")
	rewardMiss := fs.Float64("reward-miss", defaultRewards.PickFail, "reward for picking up on an empty cell")
	rewardWall := fs.Float64("reward-wall", defaultRewards.WallHit, "reward for moving into a wall")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	flagValues := map[string]any{
		"width":       *width,
		"height":      *height,
		"fill":        *fill,
		"pop":         *population,
		"mutations":   *mutations,
		"steps":       *maxSteps,
		"gens":        *generations,
		"seed":        *seed,
		"workers":     *workers,
		"reward-pick": *rewardPick,
		"reward-miss": *rewardMiss,
		"reward-wall": *rewardWall,
	}
	if *configPath == "" {
		for name := range flagValues {
			setFlags[name] = true
		}
	}
	if err := overrideFromFlags(&req, setFlags, flagValues); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	if *metricsAddr != "" {
		shutdown, err := serveMetrics(*metricsAddr, recorder)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	client, err := sf.client(recorder)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	out := csv.NewWriter(stdout)
	if err := out.Write([]string{"generation", "score"}); err != nil {
		return err
	}
	out.Flush()
	req.Observer = func(d model.GenerationDiagnostics) {
		_ = out.Write(stats.FitnessRow(d.Generation, d.BestFitness))
		out.Flush()
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if err := out.Error(); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "run completed run_id=%s generations=%d final_best_fitness=%.6f champion=%s champion_fitness=%.6f\n",
		summary.RunID,
		len(summary.BestByGeneration),
		summary.FinalBestFitness,
		summary.Champion.ID,
		summary.ChampionFitness,
	)
	fmt.Fprintf(stderr, "artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runSmoke(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("smoke", flag.ContinueOnError)
	seed := fs.Int64("seed", time.Now().UnixNano(), "rng seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return canbot.Smoke(rand.New(rand.NewSource(*seed)), stdout)
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := sf.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, canbot.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		type runsItem struct {
			RunID            string          `json:"run_id"`
			CreatedAt        time.Time       `json:"created_at"`
			Seed             int64           `json:"seed"`
			PopulationSize   int             `json:"population_size"`
			Generations      int             `json:"generations"`
			FinalBestFitness float64         `json:"final_best_fitness"`
			ChampionID       string          `json:"champion_id"`
			Config           model.RunConfig `json:"config"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem{
				RunID:            r.RunID,
				CreatedAt:        r.CreatedAt,
				Seed:             r.Seed,
				PopulationSize:   r.Population,
				Generations:      r.Generations,
				FinalBestFitness: r.FinalBestFitness,
				ChampionID:       r.ChampionID,
				Config:           r.Config,
			})
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(stdout, "run_id=%s created=%q seed=%d pop=%s gens=%d final_best_fitness=%.6f\n",
			r.RunID,
			humanize.Time(r.CreatedAt),
			r.Seed,
			humanize.Comma(int64(r.Population)),
			r.Generations,
			r.FinalBestFitness,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 0, "max generations to print (0 for all)")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("fitness requires --run-id or --latest")
	}

	client, err := sf.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, canbot.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	return stats.WriteFitnessCSV(stdout, history)
}

func runChampion(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("champion", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the champion of the most recent run")
	compact := fs.Bool("compact", false, "print the rule table as one action digit per sensor code")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("champion requires --run-id or --latest")
	}

	client, err := sf.client(nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	champion, err := client.Champion(ctx, canbot.ChampionRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run_id=%s genome_id=%s generation=%d fitness=%.6f\n",
		champion.RunID,
		champion.Genome.ID,
		champion.Generation,
		champion.Fitness,
	)
	if *compact {
		fmt.Fprintln(stdout, champion.Genome.Compact())
		return nil
	}
	_, err = io.WriteString(stdout, champion.Genome.String())
	return err
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func serveMetrics(addr string, recorder *metrics.Recorder) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: canbotctl <run|smoke|runs|fitness|champion> [flags]", msg)
}
