package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"canbot/internal/model"
)

const (
	runIndexFile    = "run_index.json"
	configFile      = "config.json"
	fitnessFile     = "fitness.csv"
	diagnosticsFile = "diagnostics.json"
	championFile    = "champion.json"
	championText    = "champion.txt"
)

type RunArtifacts struct {
	RunID            string
	Config           model.RunConfig
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	FinalBestFitness float64
	Champion         model.GenomeRecord
	// ChampionListing is the human readable rule table written to champion.txt.
	ChampionListing string
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	ChampionID       string  `json:"champion_id"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeFitnessFile(filepath.Join(runDir, fitnessFile), artifacts.BestByGeneration); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if artifacts.Champion.ID != "" {
		if err := writeJSON(filepath.Join(runDir, championFile), artifacts.Champion); err != nil {
			return "", err
		}
	}
	if artifacts.ChampionListing != "" {
		if err := os.WriteFile(filepath.Join(runDir, championText), []byte(artifacts.ChampionListing), 0o644); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

// WriteFitnessCSV writes one "generation,score" row per entry of series,
// generation 0 being the initial population.
func WriteFitnessCSV(w io.Writer, series []float64) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"generation", "score"}); err != nil {
		return err
	}
	for i, best := range series {
		if err := writer.Write(FitnessRow(i, best)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func FitnessRow(generation int, score float64) []string {
	return []string{
		strconv.Itoa(generation),
		strconv.FormatFloat(score, 'f', -1, 64),
	}
}

func ReadFitnessCSV(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, nil
		}
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("fitness header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("fitness row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, err
		}
		series = append(series, value)
	}
	return series, nil
}

func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, fitnessFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	series, err := ReadFitnessCSV(file)
	if err != nil {
		return nil, false, err
	}
	return series, true, nil
}

func ReadChampion(baseDir, runID string) (model.GenomeRecord, bool, error) {
	var record model.GenomeRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, championFile), &record)
	return record, ok, err
}

func ReadRunConfig(baseDir, runID string) (model.RunConfig, bool, error) {
	var cfg model.RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the indexed runs newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}

	type indexedEntry struct {
		entry     RunIndexEntry
		createdAt time.Time
		idx       int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		// Unparseable timestamps keep the zero time and sort last.
		createdAt, _ := time.Parse(time.RFC3339Nano, entries[i].CreatedAtUTC)
		indexed[i] = indexedEntry{entry: entries[i], createdAt: createdAt, idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].createdAt.Equal(indexed[j].createdAt) {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].createdAt.After(indexed[j].createdAt)
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func writeFitnessFile(path string, series []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteFitnessCSV(file, series)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
