package storage

import "github.com/OCAP2/geoanchor/pkg/core"

// Backend is the interface all resolution journal stores must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordResolution stores rec. Backends may write asynchronously; the
	// record's ID is only assigned by synchronous backends.
	RecordResolution(rec *core.ResolutionRecord) error
	// Resolutions returns every stored record in insertion order.
	Resolutions() ([]core.ResolutionRecord, error)
}
