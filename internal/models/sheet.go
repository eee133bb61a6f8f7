package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/stwalsh4118/michraz/internal/numfmt"
)

// FlexNumber decodes a spreadsheet cell that may be a number, a
// locale-formatted string, an empty string or null. Unusable cells become 0.
type FlexNumber float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		*n = FlexNumber(numfmt.ParseLocaleNumber(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = FlexNumber(f)
	return nil
}

// FlexString decodes a cell that may be a string, a number or null.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(str))
		return nil
	}
	*s = FlexString(string(data))
	return nil
}

// SheetMetadata is the header block of one tender sheet in the feed.
type SheetMetadata struct {
	ID                FlexString `json:"id"`
	Location          string     `json:"location"`
	Neighborhood      string     `json:"neighborhood"`
	ClosingDate       string     `json:"closing_date"`
	StartBuildingDate string     `json:"start_building_date"`
}

// SheetPlot is one plot row of a tender sheet.
type SheetPlot struct {
	PlotID                  FlexNumber `json:"plot_id"`
	Size                    FlexNumber `json:"size"`
	BuildPermit             FlexNumber `json:"build_permit"`
	TotalValue              FlexNumber `json:"total_value"`
	DevelopmentFee          FlexNumber `json:"development_fee"`
	DiscountedValueNoEstate FlexNumber `json:"discounted_value_no_estate"`
	Reservist               FlexNumber `json:"reservist"`
	ReservistNoEstate       FlexNumber `json:"reservist_no_estate"`
	Combat                  FlexNumber `json:"combat"`
}

// SheetTender is one sheet of the feed: metadata plus plot rows.
type SheetTender struct {
	Metadata SheetMetadata `json:"metadata"`
	Data     []SheetPlot   `json:"data"`
}

// SheetSummary is a SheetTender decorated with the figures shown on its card.
// The label fields carry the rounded medians with thousands separators.
type SheetSummary struct {
	DaysUntilClosing *int        `json:"days_until_closing"`
	Sheet            SheetTender `json:"sheet"`
	ClosingLabel     string      `json:"closing_label"`
	MedianSizeLabel  string      `json:"median_size_label"`
	MedianValueLabel string      `json:"median_value_label"`
	MedianSize       float64     `json:"median_size"`
	MedianPermit     float64     `json:"median_build_permit"`
	MedianValue      float64     `json:"median_value"`
	IsClosed         bool        `json:"is_closed"`
}
