package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stwalsh4118/michraz/internal/logger"
	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/repository"
	"github.com/stwalsh4118/michraz/internal/tenders"
)

// ErrSheetsUnavailable is returned when the sheets feed cannot be read.
var ErrSheetsUnavailable = errors.New("tender sheets unavailable")

// SheetService serves the per-tender sheets shown to signed-in users.
type SheetService interface {
	// ListSheets returns the summaries of every sheet with an id, open
	// sheets first by days remaining, closed sheets last.
	ListSheets(ctx context.Context, now time.Time) ([]models.SheetSummary, error)
}

type sheetService struct {
	source repository.SheetSource
	log    *logger.Logger
}

// NewSheetService creates a SheetService. The feed is read on every call.
func NewSheetService(source repository.SheetSource, log *logger.Logger) SheetService {
	return &sheetService{
		source: source,
		log:    log,
	}
}

func (s *sheetService) ListSheets(ctx context.Context, now time.Time) ([]models.SheetSummary, error) {
	sheets, err := s.source.Load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.log.Error("Failed to load tender sheets", err, nil)
		return nil, fmt.Errorf("%w: %w", ErrSheetsUnavailable, err)
	}

	valid := tenders.ValidSheets(sheets)
	summaries := make([]models.SheetSummary, 0, len(valid))
	for _, sheet := range valid {
		summaries = append(summaries, tenders.Summarize(sheet, now))
	}
	tenders.SortSheets(summaries)

	s.log.Debug("Listed tender sheets", map[string]interface{}{
		"total": len(sheets),
		"valid": len(summaries),
	})
	return summaries, nil
}
