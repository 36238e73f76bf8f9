package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&AnchorResolution{},
}

// AnchorResolution is one terminated resolution attempt.
type AnchorResolution struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time           time.Time `json:"time" gorm:"index:idx_resolution_time"`
	AnchorName     string    `json:"anchorName" gorm:"size:127;index:idx_resolution_anchor"`
	AltitudeType   string    `json:"altitudeType" gorm:"size:16"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Altitude       float64   `json:"altitude"`
	AltitudeOffset float64   `json:"altitudeOffset"`
	Outcome        string    `json:"outcome" gorm:"size:16;index:idx_resolution_outcome"`
	ResultState    string    `json:"resultState" gorm:"size:64"`
	ResolvedAnchor string    `json:"resolvedAnchor" gorm:"size:127"`

	Location geom.Point     `json:"location"` // Web Mercator x/y, requested height as z
	Rotation datatypes.JSON `json:"rotation"` // [w, x, y, z]
}

func (*AnchorResolution) TableName() string {
	return "anchor_resolutions"
}
