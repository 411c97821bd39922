package chart

import "hydrateMeAPI/internal/types/hydration"

// RangeType selects the window and bucket granularity of a chart series.
type RangeType string

const (
	RangeWeekly  RangeType = "weekly"
	RangeMonthly RangeType = "monthly"
	RangeYearly  RangeType = "yearly"
)

func RangeTypeOf(serialized string) (RangeType, bool) {
	switch RangeType(serialized) {
	case RangeWeekly, RangeMonthly, RangeYearly:
		return RangeType(serialized), true
	}
	return "", false
}

// Bucket is one (label, sum) pair of a series. For weekly and monthly series
// the label is the bucket's date; for yearly it is the first of the month.
type Bucket struct {
	Date  hydration.Date        `json:"date"`
	Total hydration.Milliliters `json:"total"`
}

// Series length is fixed by the range type, never by data sparsity: 7 for
// weekly, days-in-month for monthly, always exactly 12 for yearly.
type Series []Bucket
