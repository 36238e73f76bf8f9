package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/OCAP2/geoanchor/internal/database"
	"github.com/OCAP2/geoanchor/internal/model"
	modelconvert "github.com/OCAP2/geoanchor/internal/model/convert"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// resolutionsCommand prints the journal stored in a SQLite dump, or in every
// dump of a directory, as JSON.
func resolutionsCommand(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("resolutions needs a SQLite file or a directory of dumps")
	}

	paths := []string{args[0]}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if info.IsDir() {
		paths, err = database.GetBackupDBPaths(args[0])
		if err != nil {
			return fmt.Errorf("listing dumps: %w", err)
		}
	}

	var all []core.ResolutionRecord
	for _, p := range paths {
		recs, err := readResolutions(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, recs...)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}

func readResolutions(path string) ([]core.ResolutionRecord, error) {
	mgr := database.NewManager(zerolog.Nop())
	db, err := mgr.GetSqliteDB(path)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close()

	var rows []model.AnchorResolution
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]core.ResolutionRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := modelconvert.AnchorResolutionToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
