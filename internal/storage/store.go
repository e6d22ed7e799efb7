package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/metrics"
)

var ErrNoRun = errors.New("storage: run not found")

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
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	FinalTime   float64            `json:"final_time"`
	Kernel      string             `json:"kernel"`
	Materials   []string           `json:"materials"`
	Reason      string             `json:"reason"`
	Steps       int                `json:"steps"`
	Time        float64            `json:"time"`
	Checkpoints int                `json:"checkpoints"`
	Error       string             `json:"error,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

var seriesHeader = []string{"checkpoint", "time", "step", "particles", "kinetic_energy", "px", "py"}

var particleHeader = []string{"material", "particle", "x", "y", "vx", "vy", "mass", "vol", "sxx", "sxy", "syy", "J"}

// Run is one run directory receiving checkpoints.
type Run struct {
	ID  string
	dir string

	series      *os.File
	seriesW     *csv.Writer
	checkpoints int
}

// Create makes a fresh run directory named after the scenario.
func (s *Store) Create(scenario string) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	base := fmt.Sprintf("%s_%d", scenario, time.Now().Unix())
	runID := base
	for n := 2; ; n++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, err
		}
		runID = fmt.Sprintf("%s_%d", base, n)
	}

	dir := filepath.Join(s.baseDir, runID)
	f, err := os.Create(filepath.Join(dir, "series.csv"))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(seriesHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &Run{ID: runID, dir: dir, series: f, seriesW: w}, nil
}

func (r *Run) Dir() string { return r.dir }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

// Checkpoint writes every particle of the snapshot to its own CSV file and
// appends one summary row to series.csv.
func (r *Run) Checkpoint(snap *dw.DataWarehouse, t float64) error {
	name := fmt.Sprintf("particles_%05d.csv", r.checkpoints)
	f, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(particleHeader); err != nil {
		return err
	}
	for _, dwi := range snap.Indices() {
		ps, _ := snap.Particles(dwi)
		for p := 0; p < ps.Len(); p++ {
			sig := ps.Stress[p]
			row := []string{
				strconv.Itoa(dwi), strconv.Itoa(p),
				formatFloat(ps.X[p].X), formatFloat(ps.X[p].Y),
				formatFloat(ps.V[p].X), formatFloat(ps.V[p].Y),
				formatFloat(ps.Mass[p]), formatFloat(ps.Vol[p]),
				formatFloat(sig[0]), formatFloat(sig[1]), formatFloat(sig[3]),
				formatFloat(ps.F[p].Det()),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	mom := metrics.TotalMomentum(snap)
	row := []string{
		strconv.Itoa(r.checkpoints), formatFloat(t), strconv.Itoa(snap.Step()),
		strconv.Itoa(snap.NumParticles()), formatFloat(metrics.TotalKineticEnergy(snap)),
		formatFloat(mom.X), formatFloat(mom.Y),
	}
	if err := r.seriesW.Write(row); err != nil {
		return err
	}
	r.seriesW.Flush()
	r.checkpoints++
	return r.seriesW.Error()
}

// WriteTrace stores a named time series as <name>.csv.
func (r *Run) WriteTrace(name string, times, values []float64) error {
	f, err := os.Create(filepath.Join(r.dir, name+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", name}); err != nil {
		return err
	}
	for i := range times {
		if err := w.Write([]string{formatFloat(times[i]), formatFloat(values[i])}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Finish closes the series and writes metadata.json.
func (r *Run) Finish(meta RunMetadata) error {
	r.seriesW.Flush()
	if err := r.series.Close(); err != nil {
		return err
	}

	meta.ID = r.ID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	f, err := os.Create(filepath.Join(r.dir, "metadata.json"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
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
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadSeries reads series.csv as a header plus numeric columns.
func (s *Store) LoadSeries(runID string) ([]string, [][]float64, error) {
	return readTable(filepath.Join(s.baseDir, runID, "series.csv"))
}

// LoadTrace reads a trace written with WriteTrace.
func (s *Store) LoadTrace(runID, name string) ([]float64, []float64, error) {
	_, cols, err := readTable(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, nil, err
	}
	if len(cols) < 2 {
		return []float64{}, []float64{}, nil
	}
	return cols[0], cols[1], nil
}

// LoadCheckpoint reads the particle table of checkpoint idx.
func (s *Store) LoadCheckpoint(runID string, idx int) ([]string, [][]float64, error) {
	return readTable(filepath.Join(s.baseDir, runID, fmt.Sprintf("particles_%05d.csv", idx)))
}

// readTable returns the header and the data as columns.
func readTable(path string) ([]string, [][]float64, error) {
	file, err := os.Open(path)
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
	if len(records) == 0 {
		return []string{}, [][]float64{}, nil
	}

	header := records[0]
	cols := make([][]float64, len(header))
	for _, record := range records[1:] {
		if len(record) != len(header) {
			continue
		}
		for j, field := range record {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: column %s: %w", filepath.Base(path), header[j], err)
			}
			cols[j] = append(cols[j], val)
		}
	}
	return header, cols, nil
}
