package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Metadata RunMetadata          `json:"metadata"`
	Series   map[string][]float64 `json:"series"`
}

// Export writes a run's metadata and checkpoint series as JSON.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	header, cols, err := s.LoadSeries(runID)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	data := ExportData{Metadata: *meta, Series: make(map[string][]float64, len(header))}
	for i, name := range header {
		data.Series[name] = cols[i]
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (s *Store) ExportFile(runID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Export(runID, f)
}
