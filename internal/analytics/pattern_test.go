// internal/analytics/pattern_test.go
package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUpdatePatternMatchesBatchStatistics(t *testing.T) {
	// Feeding a sequence through the incremental update must reproduce the
	// arithmetic mean and population variance of the whole sequence.
	values := []float64{3.2, 1.5, 4.8, 2.2, 9.1, 0.4, 5.5, 7.7, 2.9, 6.1, 3.3, 8.8}

	mean, stddev, count := values[0], 0.0, 1
	for _, v := range values[1:] {
		mean, stddev, count = UpdatePattern(mean, stddev, count, v)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	wantMean := sum / float64(len(values))

	var sumSq float64
	for _, v := range values {
		sumSq += (v - wantMean) * (v - wantMean)
	}
	wantStddev := math.Sqrt(sumSq / float64(len(values)))

	assert.Equal(t, len(values), count)
	assert.InEpsilon(t, wantMean, mean, 1e-9)
	assert.InEpsilon(t, wantStddev, stddev, 1e-9)
}

func TestUpdatePatternSecondSample(t *testing.T) {
	mean, stddev, count := UpdatePattern(4.0, 0.0, 1, 6.0)

	assert.Equal(t, 2, count)
	assert.InDelta(t, 5.0, mean, 1e-9)
	// Population stddev of {4, 6} is 1.
	assert.InDelta(t, 1.0, stddev, 1e-9)
}

func TestUpdatePatternIdenticalValues(t *testing.T) {
	mean, stddev, count := 2.5, 0.0, 1
	for i := 0; i < 100; i++ {
		mean, stddev, count = UpdatePattern(mean, stddev, count, 2.5)
	}

	assert.Equal(t, 101, count)
	assert.InDelta(t, 2.5, mean, 1e-9)
	assert.InDelta(t, 0.0, stddev, 1e-9)
}

func TestCompletedHour(t *testing.T) {
	now := time.Date(2026, 8, 30, 14, 37, 12, 0, time.UTC)
	start, end := CompletedHour(now)

	assert.Equal(t, time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC).Unix(), end)
	assert.Equal(t, time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC).Unix(), start)
	assert.Equal(t, int64(3600), end-start)
}

func TestDayHour(t *testing.T) {
	// Monday is day 0, Sunday day 6.
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	day, hour := DayHour(monday)
	assert.Equal(t, 0, day)
	assert.Equal(t, 9, hour)

	sunday := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	day, hour = DayHour(sunday)
	assert.Equal(t, 6, day)
	assert.Equal(t, 23, hour)
}
