package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Coordinates is a WGS84 position as served to map clients.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsNaN reports whether either component is not a number.
func (c Coordinates) IsNaN() bool {
	return math.IsNaN(c.Lat) || math.IsNaN(c.Lng)
}

// Point is a GeoJSON Point geometry.
// GeoJSON stores positions as [lon, lat], the reverse of Coordinates.
type Point struct {
	Coordinates Coordinates
}

// MarshalJSON implements json.Marshaler for API responses.
// Returns GeoJSON-compliant format for frontend consumption.
func (p Point) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Type:        "Point",
		Coordinates: [2]float64{p.Coordinates.Lng, p.Coordinates.Lat},
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for parsing GeoJSON input.
func (p *Point) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal point: %w", err)
	}

	if geom.Type != "" && geom.Type != "Point" {
		return fmt.Errorf("expected Point type, got %s", geom.Type)
	}
	if len(geom.Coordinates) < 2 {
		return fmt.Errorf("point requires 2 coordinates, got %d", len(geom.Coordinates))
	}

	p.Coordinates = Coordinates{Lat: geom.Coordinates[1], Lng: geom.Coordinates[0]}
	return nil
}

// Feature is a GeoJSON Feature with a point geometry and free-form properties.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Point                  `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// NewFeature builds a Point feature.
func NewFeature(c Coordinates, properties map[string]interface{}) Feature {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	return Feature{
		Type:       "Feature",
		Geometry:   Point{Coordinates: c},
		Properties: properties,
	}
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection wraps features, never producing a null features array.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
