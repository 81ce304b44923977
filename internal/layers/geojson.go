package layers

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/pawmap/mapboard/internal/model"
)

// GeoJSON renders a category's current markers as a GeoJSON FeatureCollection
// (points in lng/lat order, per RFC 7946). A hidden layer yields an empty
// collection.
func (c *Controller) GeoJSON(category model.Category) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, m := range c.markers[category] {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       m.AnnotationID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{m.Coordinates.Lng, m.Coordinates.Lat}),
			Properties: map[string]any{
				"category": string(m.Category),
				"icon":     string(m.Icon),
				"popup":    m.Popup,
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrapf(err, "layers: marshal %s feature collection", category)
	}
	return data, nil
}
