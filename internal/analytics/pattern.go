// internal/analytics/pattern.go

// Package analytics holds the pure math behind the hourly pattern learner:
// the online mean/variance update and the wall-clock hour windowing used by
// the aggregation jobs.
package analytics

import (
	"math"
	"time"
)

// UpdatePattern folds one observed per-minute rate into a running
// (mean, stddev, count) using Welford's online update. The incremental form
// avoids the catastrophic cancellation a naive sum-of-squares accumulator
// suffers over long uptimes.
func UpdatePattern(oldMean, oldStddev float64, oldCount int, value float64) (mean, stddev float64, count int) {
	count = oldCount + 1
	mean = oldMean + (value-oldMean)/float64(count)

	oldSumSq := oldStddev * oldStddev * float64(oldCount)
	newSumSq := oldSumSq + (value-oldMean)*(value-mean)
	stddev = math.Sqrt(newSumSq / float64(count))

	return mean, stddev, count
}

// CompletedHour returns the [start, end) unix interval of the most recently
// completed wall-clock hour.
func CompletedHour(now time.Time) (start, end int64) {
	end = now.Unix() / 3600 * 3600
	start = end - 3600
	return start, end
}

// DayHour returns the (day-of-week, hour-of-day) pattern key for a time,
// with Monday as day 0.
func DayHour(t time.Time) (dayOfWeek, hour int) {
	return (int(t.Weekday()) + 6) % 7, t.Hour()
}
