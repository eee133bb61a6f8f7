package tenders

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stwalsh4118/michraz/internal/models"
	"github.com/stwalsh4118/michraz/internal/numfmt"
)

// noClosingDate orders sheets without a usable closing date after open ones.
const noClosingDate = 9999

// Jerusalem returns the zone sheet closing dates are counted in. Without tz
// data it falls back to a fixed UTC+2 offset.
var Jerusalem = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		return time.FixedZone("IST", 2*60*60)
	}
	return loc
})

// closingDateLayouts are tried in order when parsing a sheet closing date.
var closingDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
	"02.01.2006",
}

// ParseClosingDate parses the closing date formats seen in the sheets feed.
func ParseClosingDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range closingDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised closing date %q", s)
}

// DaysUntilClosing returns whole calendar days from now until the closing
// date, negative once it has passed, or nil when the date is missing or
// unparseable.
func DaysUntilClosing(closingDate string, now time.Time) *int {
	if strings.TrimSpace(closingDate) == "" {
		return nil
	}
	date, err := ParseClosingDate(closingDate, now.Location())
	if err != nil {
		return nil
	}

	today := calendarDay(now)
	closing := calendarDay(date.In(now.Location()))
	days := int(math.Round(closing.Sub(today).Hours() / 24))
	return &days
}

// calendarDay maps t to midnight UTC of its local calendar date so that day
// differences are unaffected by DST transitions.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ClosingLabel renders the closing countdown shown on a sheet card.
func ClosingLabel(days *int) string {
	if days == nil {
		return ""
	}
	switch d := *days; {
	case d < 0:
		return "נסגר"
	case d == 0:
		return "נסגר היום"
	case d == 1:
		return "נסגר מחר"
	default:
		return fmt.Sprintf("נסגר בעוד %d ימים", d)
	}
}

// ValidSheets drops sheets whose metadata carries no id, keeping feed order.
func ValidSheets(sheets []models.SheetTender) []models.SheetTender {
	out := make([]models.SheetTender, 0, len(sheets))
	for _, s := range sheets {
		if s.Metadata.ID != "" {
			out = append(out, s)
		}
	}
	return out
}

// Summarize computes the medians and closing state for one sheet.
// Medians consider strictly positive values only.
func Summarize(sheet models.SheetTender, now time.Time) models.SheetSummary {
	sizes := make([]float64, 0, len(sheet.Data))
	permits := make([]float64, 0, len(sheet.Data))
	values := make([]float64, 0, len(sheet.Data))
	for _, row := range sheet.Data {
		sizes = append(sizes, float64(row.Size))
		permits = append(permits, float64(row.BuildPermit))
		values = append(values, float64(row.TotalValue))
	}

	days := DaysUntilClosing(sheet.Metadata.ClosingDate, now)
	medianSize := numfmt.Median(numfmt.Positive(sizes))
	medianValue := numfmt.Median(numfmt.Positive(values))
	return models.SheetSummary{
		Sheet:            sheet,
		MedianSize:       medianSize,
		MedianSizeLabel:  numfmt.FormatRounded(medianSize),
		MedianPermit:     numfmt.Median(numfmt.Positive(permits)),
		MedianValue:      medianValue,
		MedianValueLabel: numfmt.FormatRounded(medianValue),
		DaysUntilClosing: days,
		ClosingLabel:     ClosingLabel(days),
		IsClosed:         days != nil && *days < 0,
	}
}

// SortSheets orders open sheets by soonest closing first and moves closed
// sheets to the end, most recently closed first. Undated sheets sort after
// dated open ones. The sort is stable.
func SortSheets(summaries []models.SheetSummary) {
	key := func(s models.SheetSummary) int {
		if s.DaysUntilClosing == nil {
			return noClosingDate
		}
		return *s.DaysUntilClosing
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := key(summaries[i]), key(summaries[j])
		switch {
		case a < 0 && b < 0:
			return a > b
		case a < 0:
			return false
		case b < 0:
			return true
		default:
			return a < b
		}
	})
}
