// Package locations resolves Israeli settlement codes (kod yeshuv) to display
// names and map coordinates using a static reference table.
package locations

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/stwalsh4118/michraz/internal/models"
)

// UnknownLocation is the label used when a settlement code cannot be resolved.
const UnknownLocation = "מיקום לא ידוע"

// Bounding box approximating Israel. Rows outside it are treated as corrupt
// reference data. This is a fixed policy, not a geofence.
const (
	MinLatitude  = 29.0
	MaxLatitude  = 34.0
	MinLongitude = 34.0
	MaxLongitude = 36.0
)

//go:embed data/locations.json
var defaultData []byte

// Table is a read-only settlement lookup keyed by the string form of the code.
// It is safe for concurrent use once built.
type Table struct {
	byID map[string]models.Location
}

// NewTable indexes rows by id. Later rows with a duplicate id are ignored.
func NewTable(rows []models.Location) *Table {
	byID := make(map[string]models.Location, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			continue
		}
		if _, exists := byID[row.ID]; exists {
			continue
		}
		byID[row.ID] = row
	}
	return &Table{byID: byID}
}

// Parse decodes a JSON array of locations into a Table.
func Parse(data []byte) (*Table, error) {
	var rows []models.Location
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse locations: %w", err)
	}
	return NewTable(rows), nil
}

// LoadFile reads a locations JSON file from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read locations file %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the table embedded in the binary.
func Default() (*Table, error) {
	return Parse(defaultData)
}

// Len returns the number of settlements in the table.
func (t *Table) Len() int {
	return len(t.byID)
}

// Lookup returns the raw reference row for a settlement code.
func (t *Table) Lookup(code int) (models.Location, bool) {
	loc, ok := t.byID[strconv.Itoa(code)]
	return loc, ok
}

// CityName returns the Hebrew name, falling back to the English name and then
// to UnknownLocation. It never fails.
func (t *Table) CityName(code int) string {
	loc, ok := t.Lookup(code)
	if !ok {
		return UnknownLocation
	}
	if loc.Name != "" {
		return loc.Name
	}
	if loc.NameEn != "" {
		return loc.NameEn
	}
	return UnknownLocation
}

// Coordinates returns the settlement position, or nil when the row is missing,
// has no usable lat/lon, or falls outside the bounding box.
func (t *Table) Coordinates(code int) *models.Coordinates {
	loc, ok := t.Lookup(code)
	if !ok || loc.Lat == nil || loc.Lon == nil {
		return nil
	}

	lat, lng := *loc.Lat, *loc.Lon
	if lat == 0 || lng == 0 || math.IsNaN(lat) || math.IsNaN(lng) {
		return nil
	}
	if !InBounds(lat, lng) {
		return nil
	}

	return &models.Coordinates{Lat: lat, Lng: lng}
}

// InBounds reports whether a position lies inside the bounding box.
func InBounds(lat, lng float64) bool {
	return lat >= MinLatitude && lat <= MaxLatitude &&
		lng >= MinLongitude && lng <= MaxLongitude
}
