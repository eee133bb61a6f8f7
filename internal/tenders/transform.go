// Package tenders shapes raw tender records into display-ready views:
// per-tender aggregates, per-city map clusters, and filtered lists.
// Every function here is pure and safe for concurrent use.
package tenders

import (
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/numfmt"
)

// LocationResolver resolves settlement codes. *locations.Table implements it.
type LocationResolver interface {
	CityName(code int) string
	Coordinates(code int) *models.Coordinates
}

// Transform converts raw tenders one-to-one, preserving order.
func Transform(raw []models.RawTender, resolver LocationResolver) []models.ProcessedTender {
	processed := make([]models.ProcessedTender, 0, len(raw))
	for _, tender := range raw {
		processed = append(processed, TransformOne(tender, resolver))
	}
	return processed
}

// TransformOne converts a single raw tender.
// A tender with plots whose sizes or prices are all unusable still reports
// HasLots with a {0,0} range.
func TransformOne(tender models.RawTender, resolver LocationResolver) models.ProcessedTender {
	hasLots := len(tender.Plots) > 0

	var sizeRange, priceRange models.Range
	if hasLots {
		sizes := make([]float64, 0, len(tender.Plots))
		prices := make([]float64, 0, len(tender.Plots))
		for _, plot := range tender.Plots {
			sizes = append(sizes, numfmt.ParseLocaleNumber(string(plot.LotSize)))
			prices = append(prices, numfmt.ParseLocaleNumber(string(plot.FullValue)))
		}
		sizeRange = positiveRange(sizes)
		priceRange = positiveRange(prices)
	}

	return models.ProcessedTender{
		MichrazID:    tender.MichrazID,
		MichrazName:  tender.MichrazName,
		CityCode:     tender.KodYeshuv,
		CityName:     resolver.CityName(tender.KodYeshuv),
		Neighborhood: tender.Shchuna,
		LotCount:     len(tender.Plots),
		SizeRange:    sizeRange,
		PriceRange:   priceRange,
		HasLots:      hasLots,
		Coordinates:  resolver.Coordinates(tender.KodYeshuv),
	}
}

// positiveRange returns {min,max} over the strictly positive values, or {0,0}.
func positiveRange(values []float64) models.Range {
	var r models.Range
	found := false
	for _, v := range values {
		if v <= 0 {
			continue
		}
		if !found {
			r = models.Range{Min: v, Max: v}
			found = true
			continue
		}
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	return r
}
