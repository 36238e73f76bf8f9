package storage_test

import (
	"io"
	"testing"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/storage"
	gormstorage "github.com/OCAP2/geoanchor/internal/storage/gorm"
	"github.com/OCAP2/geoanchor/internal/storage/memory"
	"github.com/OCAP2/geoanchor/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/geoanchor/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Backend = (*gormstorage.Backend)(nil)
	_ storage.Backend = (*sqlitestorage.Backend)(nil)
	_ storage.Backend = (*postgres.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		typ  string
		want any
	}{
		{"memory", &memory.Backend{}},
		{"", &memory.Backend{}},
		{"postgres", &postgres.Backend{}},
		{"sqlite", &sqlitestorage.Backend{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b, err := storage.NewBackend(config.StorageConfig{Type: tt.typ}, nil, zerolog.New(io.Discard))
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
			if s, ok := b.(*sqlitestorage.Backend); ok {
				require.NoError(t, s.Init())
				require.NoError(t, s.Close())
			}
		})
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "mongo"}, nil, zerolog.New(io.Discard))
	assert.ErrorContains(t, err, "unknown storage type: mongo")
}
