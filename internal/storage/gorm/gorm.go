// Package gormstorage implements storage.Backend on top of any GORM dialect.
// Records are queued and written in batches by a background goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/geoanchor/internal/database"
	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/model"
	"github.com/OCAP2/geoanchor/internal/model/convert"
	"github.com/OCAP2/geoanchor/internal/queue"
	"github.com/OCAP2/geoanchor/pkg/core"

	"gorm.io/gorm"
)

// ErrNoDatabase is returned by Init when no connection was injected.
var ErrNoDatabase = errors.New("gorm backend has no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps        Dependencies
	resolutions *queue.Queue[model.AnchorResolution]

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = time.Second
	}
	return &Backend{
		deps:        deps,
		resolutions: queue.New[model.AnchorResolution](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	b.startDBWriter()
	return nil
}

// Close stops the writer goroutine and flushes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// RecordResolution queues rec for the next write cycle.
func (b *Backend) RecordResolution(rec *core.ResolutionRecord) error {
	b.resolutions.Push(convert.CoreToAnchorResolution(*rec))
	return nil
}

// Pending returns the number of queued, unwritten records.
func (b *Backend) Pending() int {
	return b.resolutions.Len()
}

// Flush writes every queued record now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return writeQueue(b.deps.DB, b.resolutions, "anchor_resolutions", b.deps.LogManager.WriteLog)
}

// Resolutions flushes the queue and reads every stored record back.
func (b *Backend) Resolutions() ([]core.ResolutionRecord, error) {
	if b.deps.DB == nil {
		return nil, ErrNoDatabase
	}
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rows []model.AnchorResolution
	if err := b.deps.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read resolutions: %w", err)
	}

	out := make([]core.ResolutionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := convert.AnchorResolutionToCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// writeQueue drains q inside one transaction. Failed batches are re-queued.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	items := q.Drain()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log(":DB:WRITER:", fmt.Sprintf("Wrote %d %s", len(items), name), "DEBUG")
	return nil
}

// startDBWriter starts the background goroutine that periodically drains the queue into the DB.
func (b *Backend) startDBWriter() {
	stop, done := b.stopChan, b.done

	go func() {
		defer close(done)

		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = b.Flush()
			}
		}
	}()
}
