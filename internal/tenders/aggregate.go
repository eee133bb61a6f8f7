package tenders

import (
	"sort"

	"github.com/mmcloughlin/geohash"
	"github.com/stwalsh4118/michraz/internal/models"
)

// GeohashPrecision is the length of the geohash attached to city markers
// (cells of roughly 1.2km x 0.6km).
const GeohashPrecision = 6

// AggregateByCity folds tenders into one CityAggregate per city code.
// Tenders without usable coordinates are skipped. The aggregate takes its
// name and coordinates from the first tender seen for that city.
func AggregateByCity(tenders []models.ProcessedTender) map[int]models.CityAggregate {
	cities := make(map[int]models.CityAggregate)

	for _, tender := range tenders {
		if tender.Coordinates == nil || tender.Coordinates.IsNaN() {
			continue
		}

		city, ok := cities[tender.CityCode]
		if !ok {
			coords := *tender.Coordinates
			city = models.CityAggregate{
				CityCode:    tender.CityCode,
				CityName:    tender.CityName,
				Coordinates: coords,
				Geohash:     geohash.EncodeWithPrecision(coords.Lat, coords.Lng, GeohashPrecision),
				Tenders:     []models.ProcessedTender{},
			}
		}

		city.TenderCount++
		city.TotalLots += tender.LotCount
		city.Tenders = append(city.Tenders, tender)
		cities[tender.CityCode] = city
	}

	return cities
}

// SortedAggregates returns the aggregates ordered by city code.
func SortedAggregates(cities map[int]models.CityAggregate) []models.CityAggregate {
	out := make([]models.CityAggregate, 0, len(cities))
	for _, city := range cities {
		out = append(out, city)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CityCode < out[j].CityCode
	})
	return out
}

// CityFeatures renders aggregates as GeoJSON point features for map clients.
// Member tenders are summarised by id to keep marker payloads small.
func CityFeatures(cities []models.CityAggregate) models.FeatureCollection {
	features := make([]models.Feature, 0, len(cities))
	for _, city := range cities {
		ids := make([]int, 0, len(city.Tenders))
		for _, t := range city.Tenders {
			ids = append(ids, t.MichrazID)
		}
		features = append(features, models.NewFeature(city.Coordinates, map[string]interface{}{
			"city_code":    city.CityCode,
			"city_name":    city.CityName,
			"geohash":      city.Geohash,
			"tender_count": city.TenderCount,
			"total_lots":   city.TotalLots,
			"tender_ids":   ids,
		}))
	}
	return models.NewFeatureCollection(features)
}
