package services

import (
	"context"
	"fmt"
	"log"

	"hydrateMeAPI/internal/persistence"
	"hydrateMeAPI/internal/types/chart"
	"hydrateMeAPI/internal/types/hydration"
)

// rangeQueryLimit caps the day fetch backing one aggregation. A yearly window
// holds at most 366 day records, so the cap never truncates in practice; an
// aggregation over a result set that hits the cap is not exhaustive, which
// LoadSeries logs rather than hides.
const rangeQueryLimit = 1000

// AggregationService buckets raw per-day hydration records into chart series.
type AggregationService struct {
	days persistence.DayStore
}

func NewAggregationService(days persistence.DayStore) *AggregationService {
	return &AggregationService{days: days}
}

// LoadSeries fetches the range for the window in one bounded query and
// aggregates it.
func (s *AggregationService) LoadSeries(ctx context.Context, rangeType chart.RangeType, referenceDate hydration.Date) (chart.Series, error) {
	start, end := dataWindow(rangeType, referenceDate)

	days, err := s.days.GetRange(ctx, start.EpochDays(), end.EpochDays(), rangeQueryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart range: %w", err)
	}
	if len(days) == rangeQueryLimit {
		log.Printf("Chart range %s hit the %d-row page cap; series may be incomplete", rangeType, rangeQueryLimit)
	}

	return Aggregate(rangeType, referenceDate, days), nil
}

// dataWindow resolves the inclusive fetch bounds for the range relative to
// the reference date. The yearly window only reaches the reference date;
// future months of the year cannot hold data yet.
func dataWindow(rangeType chart.RangeType, ref hydration.Date) (hydration.Date, hydration.Date) {
	switch rangeType {
	case chart.RangeWeekly:
		monday := ref.WeekStart()
		return monday, monday.AddDays(6)
	case chart.RangeMonthly:
		first := ref.MonthStart()
		return first, first.AddDays(ref.DaysInMonth() - 1)
	default: // yearly
		return hydration.Date{Year: ref.Year, Month: 1, Day: 1}, ref
	}
}

// Aggregate is pure: it assigns every fetched day to its bucket and sums with
// integer addition. Buckets are never omitted. The series length is fixed by
// the range type (7 / days-in-month / always exactly 12), and dates or months
// without records report a zero sum.
func Aggregate(rangeType chart.RangeType, referenceDate hydration.Date, days []hydration.Day) chart.Series {
	start, _ := dataWindow(rangeType, referenceDate)

	if rangeType == chart.RangeYearly {
		monthlySums := make(map[string]hydration.Milliliters)
		for _, day := range days {
			monthStart := day.Date.MonthStart()
			monthlySums[monthStart.String()] += day.Total()
		}

		series := make(chart.Series, 0, 12)
		for offset := 0; offset < 12; offset++ {
			monthStart := start.AddMonths(offset)
			series = append(series, chart.Bucket{
				Date:  monthStart,
				Total: monthlySums[monthStart.String()],
			})
		}
		return series
	}

	dailySums := make(map[string]hydration.Milliliters)
	for _, day := range days {
		dailySums[day.Date.String()] += day.Total()
	}

	length := 7
	if rangeType == chart.RangeMonthly {
		length = referenceDate.DaysInMonth()
	}

	series := make(chart.Series, 0, length)
	for offset := 0; offset < length; offset++ {
		date := start.AddDays(offset)
		series = append(series, chart.Bucket{
			Date:  date,
			Total: dailySums[date.String()],
		})
	}
	return series
}
