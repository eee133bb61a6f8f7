package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/numfmt"
	"github.com/stwalsh4118/michraz/internal/repository"
	"github.com/stwalsh4118/michraz/internal/tenders"
	"golang.org/x/sync/singleflight"
)

// DatasetLoadTimeout bounds a single load of the tender dataset.
const DatasetLoadTimeout = 30 * time.Second

// Service-level errors
var (
	ErrTenderNotFound     = errors.New("tender not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrDatasetUnavailable = errors.New("tender dataset unavailable")
)

// LocationTable resolves settlement codes. *locations.Table implements it.
type LocationTable interface {
	tenders.LocationResolver
	Lookup(code int) (models.Location, bool)
}

// TenderDetail is a single tender with its plots and display labels.
type TenderDetail struct {
	Plots      []models.RawPlot       `json:"plots"`
	PriceLabel string                 `json:"price_label"`
	SizeLabel  string                 `json:"size_label"`
	Tender     models.ProcessedTender `json:"tender"`
}

// TenderService defines the read operations over the tender dataset.
type TenderService interface {
	// ListTenders returns the tenders matching c, complete tenders first.
	ListTenders(ctx context.Context, c tenders.Criteria) ([]models.ProcessedTender, error)

	// GetTender returns one tender by id or ErrTenderNotFound.
	GetTender(ctx context.Context, id int) (*TenderDetail, error)

	// ListCities aggregates the tenders matching c by settlement, ordered by code.
	ListCities(ctx context.Context, c tenders.Criteria) ([]models.CityAggregate, error)

	// CityFeatures returns the city aggregates as GeoJSON point features.
	CityFeatures(ctx context.Context, c tenders.Criteria) (models.FeatureCollection, error)

	// Location returns the reference row for a settlement code.
	Location(code int) (models.Location, error)

	// Warm loads the dataset if it has not been loaded yet.
	Warm(ctx context.Context) error

	// Ready reports whether the dataset has been loaded.
	Ready() bool
}

// dataset is an immutable snapshot of the processed tenders.
type dataset struct {
	byID      map[int]int
	raw       []models.RawTender
	processed []models.ProcessedTender
}

type tenderService struct {
	source    repository.TenderSource
	locations LocationTable
	log       *logger.Logger
	data      *dataset
	group     singleflight.Group
	mu        sync.RWMutex
}

// NewTenderService creates a TenderService. The dataset is loaded on first
// use; concurrent first callers share one load and a failed load is retried
// by the next caller.
func NewTenderService(source repository.TenderSource, locations LocationTable, log *logger.Logger) TenderService {
	return &tenderService{
		source:    source,
		locations: locations,
		log:       log,
	}
}

func (s *tenderService) ListTenders(ctx context.Context, c tenders.Criteria) ([]models.ProcessedTender, error) {
	data, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}

	result := tenders.Filter(data.processed, c)
	tenders.SortByCompleteness(result)

	s.log.Debug("Listed tenders", map[string]interface{}{
		"total":    len(data.processed),
		"returned": len(result),
	})
	return result, nil
}

func (s *tenderService) GetTender(ctx context.Context, id int) (*TenderDetail, error) {
	data, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}

	idx, ok := data.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrTenderNotFound, id)
	}

	tender := data.processed[idx]
	plots := data.raw[idx].Plots
	if plots == nil {
		plots = []models.RawPlot{}
	}

	detail := &TenderDetail{
		Tender: tender,
		Plots:  plots,
	}
	if !tender.PriceRange.IsUnknown() {
		detail.PriceLabel = numfmt.FormatPriceRange(tender.PriceRange.Min, tender.PriceRange.Max)
	}
	if !tender.SizeRange.IsUnknown() {
		detail.SizeLabel = numfmt.FormatSizeRange(tender.SizeRange.Min, tender.SizeRange.Max)
	}
	return detail, nil
}

func (s *tenderService) ListCities(ctx context.Context, c tenders.Criteria) ([]models.CityAggregate, error) {
	data, err := s.dataset(ctx)
	if err != nil {
		return nil, err
	}

	cities := tenders.SortedAggregates(tenders.AggregateByCity(tenders.Filter(data.processed, c)))
	return cities, nil
}

func (s *tenderService) CityFeatures(ctx context.Context, c tenders.Criteria) (models.FeatureCollection, error) {
	cities, err := s.ListCities(ctx, c)
	if err != nil {
		return models.FeatureCollection{}, err
	}
	return tenders.CityFeatures(cities), nil
}

func (s *tenderService) Location(code int) (models.Location, error) {
	loc, ok := s.locations.Lookup(code)
	if !ok {
		return models.Location{}, fmt.Errorf("%w: code %d", ErrLocationNotFound, code)
	}
	return loc, nil
}

func (s *tenderService) Warm(ctx context.Context) error {
	_, err := s.dataset(ctx)
	return err
}

func (s *tenderService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data != nil
}

// dataset returns the cached snapshot, loading it when absent. The shared
// load is detached from the cancellation of the caller that started it.
func (s *tenderService) dataset(ctx context.Context) (*dataset, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	if data != nil {
		return data, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := s.group.DoChan("tenders", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DatasetLoadTimeout)
		defer cancel()
		return s.load(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dataset), nil
	}
}

func (s *tenderService) load(ctx context.Context) (*dataset, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	if data != nil {
		return data, nil
	}

	start := time.Now()
	raw, err := s.source.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load tender dataset", err, map[string]interface{}{
			"source": s.source.Location(),
		})
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}

	data = &dataset{
		raw:       raw,
		processed: tenders.Transform(raw, s.locations),
		byID:      make(map[int]int, len(raw)),
	}
	duplicates := 0
	for i, tender := range raw {
		if _, seen := data.byID[tender.MichrazID]; seen {
			duplicates++
			continue
		}
		data.byID[tender.MichrazID] = i
	}

	fields := map[string]interface{}{
		"source":      s.source.Location(),
		"tenders":     len(raw),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if duplicates > 0 {
		fields["duplicate_ids"] = duplicates
		s.log.Warn("Tender dataset contains duplicate ids; first occurrence wins", fields)
	} else {
		s.log.Info("Tender dataset loaded", fields)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return data, nil
}
