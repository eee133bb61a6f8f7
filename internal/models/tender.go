package models

import (
	"bytes"
	"encoding/json"
)

// PlotValue is one cell of a plot row. The dataset publishes numbers as
// locale-formatted strings; any other JSON value decodes to "" and so
// parses as 0.
type PlotValue string

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (v *PlotValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = ""
	if len(data) == 0 || data[0] != '"' {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = PlotValue(s)
	}
	return nil
}

// RawPlot is a single lot within a tender as published in the dataset.
// Numeric values are locale-formatted strings such as "1,200".
type RawPlot struct {
	LotNumber               PlotValue `json:"lot_number" yaml:"lot_number"`
	LotSize                 PlotValue `json:"lot_size" yaml:"lot_size"`
	FullValue               PlotValue `json:"full_value" yaml:"full_value"`
	ValueReservistNoHouse   PlotValue `json:"value_reservist_no_house" yaml:"value_reservist_no_house"`
	ValueReservistWithHouse PlotValue `json:"value_reservist_with_house" yaml:"value_reservist_with_house"`
	ValueCombatNoHouse      PlotValue `json:"value_combat_no_house" yaml:"value_combat_no_house"`
	TotalDevelopment        PlotValue `json:"total_development" yaml:"total_development"`
}

// RawTender is a tender (michraz) record from the dataset.
type RawTender struct {
	Plots       []RawPlot `json:"plots" yaml:"plots"`
	MichrazName string    `json:"michraz_name" yaml:"michraz_name"`
	Shchuna     string    `json:"shchuna" yaml:"shchuna"`
	MichrazID   int       `json:"michraz_id" yaml:"michraz_id"`
	KodYeshuv   int       `json:"kod_yeshuv" yaml:"kod_yeshuv"`
}

// Range is a closed numeric interval. {0,0} means the range is unknown.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// IsUnknown reports whether the range carries no data.
func (r Range) IsUnknown() bool {
	return r.Min == 0 && r.Max == 0
}

// ProcessedTender is the display-ready view of a RawTender.
// Coordinates is nil when the settlement is unmapped or fails the bounds check.
type ProcessedTender struct {
	Coordinates  *Coordinates `json:"coordinates" yaml:"coordinates"`
	MichrazName  string       `json:"michraz_name" yaml:"michraz_name"`
	CityName     string       `json:"city_name" yaml:"city_name"`
	Neighborhood string       `json:"neighborhood" yaml:"neighborhood"`
	SizeRange    Range        `json:"size_range" yaml:"size_range"`
	PriceRange   Range        `json:"price_range" yaml:"price_range"`
	MichrazID    int          `json:"michraz_id" yaml:"michraz_id"`
	CityCode     int          `json:"city_code" yaml:"city_code"`
	LotCount     int          `json:"lot_count" yaml:"lot_count"`
	HasLots      bool         `json:"has_lots" yaml:"has_lots"`
}

// IsComplete reports whether the tender has lots and all four range bounds.
func (t ProcessedTender) IsComplete() bool {
	return t.HasLots &&
		t.PriceRange.Min != 0 && t.PriceRange.Max != 0 &&
		t.SizeRange.Min != 0 && t.SizeRange.Max != 0
}

// CityAggregate groups the tenders of one settlement into a map marker.
type CityAggregate struct {
	Tenders     []ProcessedTender `json:"tenders" yaml:"tenders"`
	CityName    string            `json:"city_name" yaml:"city_name"`
	Geohash     string            `json:"geohash" yaml:"geohash"`
	Coordinates Coordinates       `json:"coordinates" yaml:"coordinates"`
	CityCode    int               `json:"city_code" yaml:"city_code"`
	TenderCount int               `json:"tender_count" yaml:"tender_count"`
	TotalLots   int               `json:"total_lots" yaml:"total_lots"`
}
