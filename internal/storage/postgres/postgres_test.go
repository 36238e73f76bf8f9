package postgres

import (
	"io"
	"testing"
	"time"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestNotInitialized(t *testing.T) {
	b := New(Dependencies{})

	assert.ErrorIs(t, b.RecordResolution(&core.ResolutionRecord{}), ErrNotInitialized)
	_, err := b.Resolutions()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, b.Close())
}

func TestInitWithInjectedDB(t *testing.T) {
	b := New(Dependencies{DB: newTestDB(t)})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordResolution(&core.ResolutionRecord{
		AnchorName: "a",
		Outcome:    core.OutcomeResolved,
		Time:       time.Now(),
	}))

	got, err := b.Resolutions()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].AnchorName)
	assert.False(t, b.UsingFallback())
}

func TestInit_FallsBackWhenUnreachable(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	b := New(Dependencies{DBLogger: zerolog.New(io.Discard)})
	require.NoError(t, b.Init())
	defer b.Close()

	assert.True(t, b.UsingFallback())
}
