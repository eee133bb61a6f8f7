package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Location is one row of the settlement reference table.
// Lat and Lon are nil when the source row has no usable numeric value.
type Location struct {
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	NameEn string   `json:"nameEn"`
}

// UnmarshalJSON tolerates ids written as numbers and coordinates written as
// strings, empty strings or null. Anything that is not a number becomes nil.
func (l *Location) UnmarshalJSON(data []byte) error {
	var row struct {
		ID     json.RawMessage `json:"id"`
		Name   string          `json:"name"`
		NameEn string          `json:"nameEn"`
		Lat    json.RawMessage `json:"lat"`
		Lon    json.RawMessage `json:"lon"`
	}
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("failed to unmarshal location: %w", err)
	}

	l.ID = rawString(row.ID)
	l.Name = row.Name
	l.NameEn = row.NameEn
	l.Lat = rawFloat(row.Lat)
	l.Lon = rawFloat(row.Lon)
	return nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func rawFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
