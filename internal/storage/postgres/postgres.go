// Package postgres implements the storage.Backend interface on PostgreSQL
// with PostGIS. Writes go through the queue-based GORM backend.
package postgres

import (
	"errors"
	"fmt"

	"github.com/OCAP2/geoanchor/internal/database"
	"github.com/OCAP2/geoanchor/internal/logging"
	gormstorage "github.com/OCAP2/geoanchor/internal/storage/gorm"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// ErrNotInitialized is returned when the backend is used before Init.
var ErrNotInitialized = errors.New("postgres backend not initialized")

// Dependencies holds all dependencies for the Postgres backend. DB is
// optional; without it Init connects using the db.* config keys.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	DBLogger   zerolog.Logger
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	deps    Dependencies
	manager *database.Manager
	gorm    *gormstorage.Backend
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:    deps,
		manager: database.NewManager(deps.DBLogger),
	}
}

// Init connects when no DB was injected, migrates the schema and starts the
// writer. An unreachable server falls back to in-memory SQLite.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		if err := b.manager.Connect(); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if b.manager.ShouldSaveLocal {
			b.deps.LogManager.WriteLog("postgres:Init", "Postgres unreachable, journaling to in-memory SQLite", "WARN")
		}
		db = b.manager.DB
	}

	b.gorm = gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: b.deps.LogManager,
	})
	return b.gorm.Init()
}

// UsingFallback reports whether Init fell back to SQLite.
func (b *Backend) UsingFallback() bool {
	return b.manager.ShouldSaveLocal
}

// Close stops the writer and flushes the queue.
func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return b.gorm.Close()
}

func (b *Backend) RecordResolution(rec *core.ResolutionRecord) error {
	if b.gorm == nil {
		return ErrNotInitialized
	}
	return b.gorm.RecordResolution(rec)
}

func (b *Backend) Resolutions() ([]core.ResolutionRecord, error) {
	if b.gorm == nil {
		return nil, ErrNotInitialized
	}
	return b.gorm.Resolutions()
}
