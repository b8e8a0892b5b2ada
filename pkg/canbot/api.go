package canbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"canbot/internal/evo"
	"canbot/internal/genotype"
	"canbot/internal/metrics"
	"canbot/internal/model"
	"canbot/internal/scape"
	"canbot/internal/sensor"
	"canbot/internal/stats"
	"canbot/internal/storage"
	"canbot/internal/world"
)

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "canbot.db"

	DefaultGridWidth       = 11
	DefaultGridHeight      = 11
	DefaultFillProbability = 0.2
	DefaultPopulation      = 1000
	DefaultMutationEvents  = 5
	DefaultMaxSteps        = 200
	DefaultGenerations     = 100
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
}

type Client struct {
	store       storage.Store
	initialized bool

	artifactsDir string
	logger       *slog.Logger
	metrics      *metrics.Recorder
}

// RunRequest carries every tunable of a run. Zero values select the defaults.
// Fields where zero is a meaningful setting are pointers and default only when nil.
type RunRequest struct {
	GridWidth       int
	GridHeight      int
	FillProbability *float64
	Population      int
	MutationEvents  *int
	MaxSteps        int
	Generations     *int
	Rewards         *model.RewardConfig
	Seed            int64
	Workers         int
	// Observer receives each generation's diagnostics as soon as it is scored.
	Observer func(model.GenerationDiagnostics)
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	BestByGeneration []float64
	FinalBestFitness float64
	Champion         genotype.Genome
	ChampionFitness  float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAt        time.Time
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
	ChampionID       string
	Config           model.RunConfig
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ChampionRequest struct {
	RunID  string
	Latest bool
}

type ChampionItem struct {
	RunID      string
	Generation int
	Fitness    float64
	Genome     genotype.Genome
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		logger:       logger,
		metrics:      opts.Metrics,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func (r RunRequest) withDefaults() RunRequest {
	if r.GridWidth == 0 {
		r.GridWidth = DefaultGridWidth
	}
	if r.GridHeight == 0 {
		r.GridHeight = DefaultGridHeight
	}
	if r.FillProbability == nil {
		r.FillProbability = Float64(DefaultFillProbability)
	}
	if r.Population == 0 {
		r.Population = DefaultPopulation
	}
	if r.MutationEvents == nil {
		r.MutationEvents = Int(DefaultMutationEvents)
	}
	if r.MaxSteps == 0 {
		r.MaxSteps = DefaultMaxSteps
	}
	if r.Generations == nil {
		r.Generations = Int(DefaultGenerations)
	}
	if r.Rewards == nil {
		defaults := DefaultRewards()
		r.Rewards = &defaults
	}
	if r.Workers <= 0 {
		r.Workers = runtime.GOMAXPROCS(0)
	}
	return r
}

func (r RunRequest) validate() error {
	if r.GridWidth < 1 || r.GridHeight < 1 {
		return fmt.Errorf("grid size must be positive, got %dx%d", r.GridWidth, r.GridHeight)
	}
	if fill := *r.FillProbability; fill < 0 || fill > 1 || math.IsNaN(fill) {
		return fmt.Errorf("fill probability must be in [0,1], got %f", fill)
	}
	if r.Population < 2 {
		return fmt.Errorf("population must be >= 2, got %d", r.Population)
	}
	if *r.MutationEvents < 0 {
		return fmt.Errorf("mutation events must be >= 0, got %d", *r.MutationEvents)
	}
	if r.MaxSteps < 1 {
		return fmt.Errorf("max steps must be >= 1, got %d", r.MaxSteps)
	}
	if *r.Generations < 0 {
		return fmt.Errorf("generations must be >= 0, got %d", *r.Generations)
	}
	if r.Rewards.PickSuccess <= 0 {
		return errors.New("pick success reward must be > 0")
	}
	return nil
}

func (r RunRequest) config() model.RunConfig {
	return model.RunConfig{
		GridWidth:       r.GridWidth,
		GridHeight:      r.GridHeight,
		FillProbability: *r.FillProbability,
		PopulationSize:  r.Population,
		MutationEvents:  *r.MutationEvents,
		MaxSteps:        r.MaxSteps,
		Generations:     *r.Generations,
		Rewards:         *r.Rewards,
		Seed:            r.Seed,
		Workers:         r.Workers,
	}
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	cfg := req.config()

	rng := rand.New(rand.NewSource(req.Seed))
	population, err := genotype.SeedPopulation(req.Population, rng)
	if err != nil {
		return RunSummary{}, err
	}
	cans := scape.CansScape{
		Grids: world.RandomFactory(cfg.GridWidth, cfg.GridHeight, cfg.FillProbability),
		Simulator: scape.Simulator{
			Rewards: scape.Rewards{
				PickSuccess: req.Rewards.PickSuccess,
				PickFail:    req.Rewards.PickFail,
				WallHit:     req.Rewards.WallHit,
			},
			MaxSteps: req.MaxSteps,
		},
	}
	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Scape:          cans,
		MutationEvents: cfg.MutationEvents,
		PopulationSize: req.Population,
		Generations:    cfg.Generations,
		Workers:        req.Workers,
		Seed:           rng.Int63(),
		Logger:         logger,
		Metrics:        c.metrics,
		Observer:       req.Observer,
	})
	if err != nil {
		return RunSummary{}, err
	}

	logger.Info("run started",
		"population", req.Population,
		"generations", cfg.Generations,
		"grid", fmt.Sprintf("%dx%d", req.GridWidth, req.GridHeight),
		"seed", req.Seed,
		"workers", req.Workers,
	)
	start := time.Now()
	result, err := monitor.Run(ctx, population)
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	champion := result.Champion
	championRecord := model.GenomeRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID + "/" + champion.Genome.ID,
		RunID:           runID,
		Generation:      championGeneration(result.Diagnostics, champion.Genome.ID),
		Fitness:         champion.Fitness,
		Fingerprint:     genotype.ComputeGenomeSignature(champion.Genome).Fingerprint,
		Rules:           champion.Genome.Compact(),
	}
	finalBest := 0.0
	if n := len(result.BestByGeneration); n > 0 {
		finalBest = result.BestByGeneration[n-1]
	}
	createdAt := time.Now().UTC()
	runRecord := model.RunRecord{
		VersionedRecord:  storage.CurrentVersion(),
		ID:               runID,
		CreatedAt:        createdAt,
		Config:           cfg,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		Diagnostics:      append([]model.GenerationDiagnostics(nil), result.Diagnostics...),
		ChampionID:       championRecord.ID,
		ChampionFitness:  champion.Fitness,
		FinalBestFitness: finalBest,
	}
	if err := c.store.SaveGenome(ctx, championRecord); err != nil {
		return RunSummary{}, fmt.Errorf("save champion: %w", err)
	}
	if err := c.store.SaveRun(ctx, runRecord); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		RunID:            runID,
		Config:           cfg,
		BestByGeneration: runRecord.BestByGeneration,
		Diagnostics:      runRecord.Diagnostics,
		FinalBestFitness: finalBest,
		Champion:         championRecord,
		ChampionListing:  champion.Genome.String(),
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		PopulationSize:   req.Population,
		Generations:      cfg.Generations,
		Seed:             req.Seed,
		Workers:          req.Workers,
		FinalBestFitness: finalBest,
		ChampionID:       championRecord.ID,
		CreatedAtUTC:     createdAt.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	logger.Info("run finished",
		"final_best", finalBest,
		"champion", championRecord.ID,
		"champion_fitness", champion.Fitness,
		"elapsed", time.Since(start),
	)

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: finalBest,
		Champion:         champion.Genome,
		ChampionFitness:  champion.Fitness,
	}, nil
}

// Runs lists stored runs newest first. A store without runs, such as a fresh
// memory store, falls back to the artifacts run index.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunItem, 0, len(records))
	for _, rec := range records {
		out = append(out, RunItem{
			RunID:            rec.ID,
			CreatedAt:        rec.CreatedAt,
			Seed:             rec.Config.Seed,
			Population:       rec.Config.PopulationSize,
			Generations:      rec.Config.Generations,
			FinalBestFitness: rec.FinalBestFitness,
			ChampionID:       rec.ChampionID,
			Config:           rec.Config,
		})
	}
	if len(out) == 0 {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if len(out) == req.Limit {
				break
			}
			createdAt, _ := time.Parse(time.RFC3339Nano, e.CreatedAtUTC)
			cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, e.RunID)
			if err != nil {
				return nil, fmt.Errorf("read config for run %s: %w", e.RunID, err)
			}
			if !ok {
				cfg = model.RunConfig{
					PopulationSize: e.PopulationSize,
					Generations:    e.Generations,
					Seed:           e.Seed,
					Workers:        e.Workers,
				}
			}
			out = append(out, RunItem{
				RunID:            e.RunID,
				CreatedAt:        createdAt,
				Seed:             e.Seed,
				Population:       e.PopulationSize,
				Generations:      e.Generations,
				FinalBestFitness: e.FinalBestFitness,
				ChampionID:       e.ChampionID,
				Config:           cfg,
			})
		}
	}
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}

	var history []float64
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if ok {
		history = run.BestByGeneration
	} else {
		history, ok, err = stats.ReadFitnessSeries(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Champion(ctx context.Context, req ChampionRequest) (ChampionItem, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, "champion")
	if err != nil {
		return ChampionItem{}, err
	}

	var record model.GenomeRecord
	found := false
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ChampionItem{}, err
	}
	if ok {
		record, found, err = c.store.GetGenome(ctx, run.ChampionID)
		if err != nil {
			return ChampionItem{}, err
		}
	}
	if !found {
		record, found, err = stats.ReadChampion(c.artifactsDir, runID)
		if err != nil {
			return ChampionItem{}, err
		}
	}
	if !found {
		return ChampionItem{}, fmt.Errorf("champion not found for run id: %s", runID)
	}

	genome, err := genotype.ParseCompact(record.ID, record.Rules)
	if err != nil {
		return ChampionItem{}, fmt.Errorf("champion %s: %w", record.ID, err)
	}
	genome.Score = record.Fitness
	return ChampionItem{
		RunID:      runID,
		Generation: record.Generation,
		Fitness:    record.Fitness,
		Genome:     genome,
	}, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID == "" && !latest {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if runID != "" {
		return runID, nil
	}
	runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].RunID, nil
}

// Smoke prints a random example grid with its can count and the robot's current
// reading, every sensor code with its decoded reading and re-encoding, and the
// rule table of one random genome.
func Smoke(rng *rand.Rand, w io.Writer) error {
	if rng == nil {
		return errors.New("random source is required")
	}
	grid, err := world.NewRandom(DefaultGridWidth, DefaultGridHeight, DefaultFillProbability, rng)
	if err != nil {
		return err
	}
	x, y := grid.Center()

	var out errWriter
	out.w = w
	out.printf("Example world\n")
	out.printf("%s", grid.Render(x, y))
	out.printf("Total cans: %d\n", grid.ItemCount())
	out.printf("Current input: %s\n\n", grid.Sense(x, y))

	out.printf("Input combinations + integer conversion\n")
	for code := sensor.Code(0); code < sensor.Combinations; code++ {
		reading := sensor.MustDecode(code)
		out.printf("%d -> %s -> %d\n", code, reading, sensor.Encode(reading))
	}
	out.printf("\n")

	genome, err := genotype.NewRandom("smoke", rng)
	if err != nil {
		return err
	}
	out.printf("Random robot\n")
	out.printf("%s\n", genome.String())
	return out.err
}

// DefaultRewards returns the simulator's default reward table.
func DefaultRewards() model.RewardConfig {
	defaults := scape.DefaultRewards()
	return model.RewardConfig{
		PickSuccess: defaults.PickSuccess,
		PickFail:    defaults.PickFail,
		WallHit:     defaults.WallHit,
	}
}

// Int returns a pointer to v, for the optional RunRequest fields.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v, for the optional RunRequest fields.
func Float64(v float64) *float64 { return &v }

func championGeneration(diagnostics []model.GenerationDiagnostics, genomeID string) int {
	for _, d := range diagnostics {
		if d.BestGenomeID == genomeID {
			return d.Generation
		}
	}
	return 0
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
