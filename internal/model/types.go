package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type RewardConfig struct {
	PickSuccess float64 `json:"pick_success"`
	PickFail    float64 `json:"pick_fail"`
	WallHit     float64 `json:"wall_hit"`
}

// RunConfig holds every tunable of one evolution run.
type RunConfig struct {
	GridWidth       int          `json:"grid_width"`
	GridHeight      int          `json:"grid_height"`
	FillProbability float64      `json:"fill_probability"`
	PopulationSize  int          `json:"population_size"`
	MutationEvents  int          `json:"mutation_events"`
	MaxSteps        int          `json:"max_steps"`
	Generations     int          `json:"generations"`
	Rewards         RewardConfig `json:"rewards"`
	Seed            int64        `json:"seed"`
	Workers         int          `json:"workers"`
}

type GenerationDiagnostics struct {
	Generation           int     `json:"generation"`
	BestFitness          float64 `json:"best_fitness"`
	MeanFitness          float64 `json:"mean_fitness"`
	MinFitness           float64 `json:"min_fitness"`
	BestRawScore         float64 `json:"best_raw_score"`
	BestGenomeID         string  `json:"best_genome_id"`
	FingerprintDiversity int     `json:"fingerprint_diversity"`
}

type RunRecord struct {
	VersionedRecord
	ID               string                  `json:"id"`
	CreatedAt        time.Time               `json:"created_at"`
	Config           RunConfig               `json:"config"`
	BestByGeneration []float64               `json:"best_by_generation"`
	Diagnostics      []GenerationDiagnostics `json:"diagnostics,omitempty"`
	ChampionID       string                  `json:"champion_id"`
	ChampionFitness  float64                 `json:"champion_fitness"`
	FinalBestFitness float64                 `json:"final_best_fitness"`
}

// GenomeRecord stores a rule table as one action digit per sensor code.
type GenomeRecord struct {
	VersionedRecord
	ID          string  `json:"id"`
	RunID       string  `json:"run_id"`
	Generation  int     `json:"generation"`
	Fitness     float64 `json:"fitness"`
	Fingerprint string  `json:"fingerprint"`
	Rules       string  `json:"rules"`
}
