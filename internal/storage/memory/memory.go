package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// Backend keeps resolution records in memory and optionally exports them
// to JSON on Close.
type Backend struct {
	cfg     config.MemoryConfig
	records []core.ResolutionRecord

	idCounter uint
	mu        sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close writes the export file when an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// RecordResolution stores a copy of rec and assigns its ID.
func (b *Backend) RecordResolution(rec *core.ResolutionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	rec.ID = b.idCounter
	b.records = append(b.records, *rec)
	return nil
}

// Resolutions returns a copy of the stored records.
func (b *Backend) Resolutions() ([]core.ResolutionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.ResolutionRecord, len(b.records))
	copy(out, b.records)
	return out, nil
}

// ExportFileName is the file written into OutputDir.
func (b *Backend) ExportFileName() string {
	if b.cfg.CompressOutput {
		return "resolutions.json.gz"
	}
	return "resolutions.json"
}

// Export writes every record to OutputDir and returns the file path.
func (b *Backend) Export() (string, error) {
	records, _ := b.Resolutions()

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, b.ExportFileName())

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := writeRecords(f, records, b.cfg.CompressOutput); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// writeRecords encodes records as indented JSON, gzipped when compress is
// set. The gzip trailer is flushed before it returns.
func writeRecords(w io.Writer, records []core.ResolutionRecord, compress bool) error {
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(w)
		w = gz
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode resolutions: %w", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("flush compressed export: %w", err)
		}
	}
	return nil
}
