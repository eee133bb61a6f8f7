package tenders

import (
	"sort"

	"github.com/stwalsh4118/michraz/internal/models"
)

// Criteria narrows a tender list. Nil fields are not applied.
type Criteria struct {
	CityCode *int
	PriceMin *float64
	PriceMax *float64
	SizeMin  *float64
	SizeMax  *float64
}

// Filter returns the tenders matching all criteria, preserving order.
// Tenders without lots always pass the price and size checks so that
// upcoming tenders are never hidden behind numeric filters. Price and size
// use overlap semantics: a range passes a lower bound when its max reaches
// it, and an upper bound when its min does not exceed it.
func Filter(tenders []models.ProcessedTender, c Criteria) []models.ProcessedTender {
	out := make([]models.ProcessedTender, 0, len(tenders))
	for _, tender := range tenders {
		if c.Matches(tender) {
			out = append(out, tender)
		}
	}
	return out
}

// Matches reports whether a single tender passes the criteria.
func (c Criteria) Matches(t models.ProcessedTender) bool {
	if c.CityCode != nil && t.CityCode != *c.CityCode {
		return false
	}

	if !t.HasLots {
		return true
	}

	return overlaps(t.PriceRange, c.PriceMin, c.PriceMax) &&
		overlaps(t.SizeRange, c.SizeMin, c.SizeMax)
}

func overlaps(r models.Range, lower, upper *float64) bool {
	if lower != nil && r.Max < *lower {
		return false
	}
	if upper != nil && r.Min > *upper {
		return false
	}
	return true
}

// SortByCompleteness stably moves complete tenders (lots plus all four range
// bounds) ahead of incomplete ones. The slice is sorted in place.
func SortByCompleteness(tenders []models.ProcessedTender) {
	sort.SliceStable(tenders, func(i, j int) bool {
		return tenders[i].IsComplete() && !tenders[j].IsComplete()
	})
}
