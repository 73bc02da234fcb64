// Package storage keeps simulation runs on disk, one directory per run
// holding metadata.json, variables.csv and the simulated circuit.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/metrics"
	"github.com/san-kum/convsim/internal/results"
)

const (
	metadataFile  = "metadata.json"
	variablesFile = "variables.csv"
	circuitFile   = "circuit.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string                      `json:"id"`
	CircuitID   string                      `json:"circuit_id"`
	CircuitName string                      `json:"circuit_name"`
	Topology    string                      `json:"topology"`
	Timestamp   time.Time                   `json:"timestamp"`
	EndTime     float64                     `json:"end_time"`
	StepSize    float64                     `json:"step_size"`
	Method      string                      `json:"method"`
	Points      int                         `json:"points"`
	Variables   []string                    `json:"variables"`
	Stats       dynamo.Stats                `json:"stats"`
	Summary     map[string]metrics.Waveform `json:"summary"`
}

// Run describes what was simulated.
type Run struct {
	Circuit  *circuit.Circuit
	EndTime  float64
	StepSize float64
	Method   string
}

// Save writes res under a new run directory and returns the run id.
func (s *Store) Save(run Run, res *results.Result) (string, error) {
	now := time.Now().UTC()
	runID := fmt.Sprintf("%s_%s_%s", res.Topology, now.Format("20060102T150405"), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		CircuitID: res.CircuitID,
		Topology:  res.Topology,
		Timestamp: now,
		EndTime:   run.EndTime,
		StepSize:  run.StepSize,
		Method:    run.Method,
		Points:    res.Len(),
		Variables: res.Names(),
		Stats:     res.Stats,
		Summary:   metrics.Summary(res, metrics.DefaultWindow),
	}

	if run.Circuit != nil {
		meta.CircuitName = run.Circuit.Name
		if err := circuit.Save(filepath.Join(runDir, circuitFile), run.Circuit); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, variablesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, res); err != nil {
		return "", err
	}
	return runID, csvFile.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if err := checkID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadResult rebuilds the stored result of runID.
func (s *Store) LoadResult(runID string) (*results.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, variablesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	res, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	res.CircuitID = meta.CircuitID
	res.Topology = meta.Topology
	res.Stats = meta.Stats
	return res, nil
}

// LoadCircuit returns the circuit a run was made with.
func (s *Store) LoadCircuit(runID string) (*circuit.Circuit, error) {
	if err := checkID(runID); err != nil {
		return nil, err
	}
	return circuit.Load(filepath.Join(s.baseDir, runID, circuitFile))
}

func checkID(runID string) error {
	if runID == "" || runID != filepath.Base(runID) || runID == "." || runID == ".." {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

