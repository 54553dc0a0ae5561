package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store persists analysis and design runs under a base directory, one
// subdirectory per run with a metadata file, the raw report JSON, and the
// sampled response curves as CSV.
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
	ID          string             `json:"id"`
	Task        string             `json:"task"`
	Timestamp   time.Time          `json:"timestamp"`
	Numerator   []float64          `json:"numerator"`
	Denominator []float64          `json:"denominator"`
	Summary     map[string]float64 `json:"summary"`
}

// Save writes one run: metadata, the full report as report.json, and the
// time/response samples as response.csv. Returns the generated run ID.
func (s *Store) Save(task string, num, den []float64, summary map[string]float64, report any, times, response []float64) (string, error) {
	runID := fmt.Sprintf("%s_%d", task, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Task:        task,
		Timestamp:   time.Now(),
		Numerator:   num,
		Denominator: den,
		Summary:     summary,
	}

	if err := writeJSONFile(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeJSONFile(filepath.Join(runDir, "report.json"), report); err != nil {
		return "", err
	}

	if len(times) == 0 {
		return runID, nil
	}

	csvFile, err := os.Create(filepath.Join(runDir, "response.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write([]string{"time", "response"}); err != nil {
		return "", err
	}
	for i := range times {
		row := []string{
			strconv.FormatFloat(times[i], 'f', 6, 64),
			strconv.FormatFloat(response[i], 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadReport returns the raw report JSON of a run.
func (s *Store) LoadReport(runID string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "report.json"))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// LoadResponse reads back the sampled response curve of a run.
func (s *Store) LoadResponse(runID string) (times, response []float64, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "response.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []float64{}, nil
	}

	for _, record := range records[1:] {
		if len(record) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		y, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		times = append(times, t)
		response = append(response, y)
	}

	return times, response, nil
}
