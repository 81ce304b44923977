// Package export snapshots the board for offline use: annotations to a
// shapefile for GIS hand-off, exchange listings to a spreadsheet.
package export

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/layers"
	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/store"
)

// shapefile DBF fields, fixed-width strings.
var shapeFields = []shp.Field{
	shp.StringField("ID", 64),
	shp.StringField("CATEGORY", 16),
	shp.StringField("ICON", 16),
	shp.StringField("POPUP", 128),
	shp.StringField("CREATED", 20),
}

// Shapefile writes every annotation (optionally restricted to categories) as
// a POINT shapefile at path. Returns the number of records written.
func Shapefile(st *store.Memory, path string, categories ...model.Category) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapeFields); err != nil {
		return 0, eris.Wrap(err, "export: set shapefile fields")
	}

	n := 0
	for a := range st.All(categories...) {
		marker, markerErr := layers.ToMarker(a)
		if markerErr != nil {
			return n, eris.Wrap(markerErr, "export: shapefile")
		}

		// Shapefile points are X=longitude, Y=latitude.
		row := w.Write(&shp.Point{X: a.Coordinates.Lng, Y: a.Coordinates.Lat})

		attrs := []string{
			a.ID,
			string(a.Category),
			string(marker.Icon),
			clip(marker.Popup, 128),
			a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		for col, val := range attrs {
			if err := w.WriteAttribute(int(row), col, val); err != nil {
				return n, eris.Wrapf(err, "export: write attribute %d", col)
			}
		}
		n++
	}

	zap.L().Info("export: shapefile written",
		zap.String("path", path),
		zap.Int("records", n),
	)
	return n, nil
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// ShapefilePath normalizes a user-supplied output path to the .shp extension.
func ShapefilePath(path string) string {
	if len(path) < 4 || path[len(path)-4:] != ".shp" {
		return fmt.Sprintf("%s.shp", path)
	}
	return path
}
