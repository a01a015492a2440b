// internal/tasks/runner_test.go
package tasks

import (
	"testing"
	"time"

	"discord-slowmode-bot/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestTakeDueSplitsBySampleDelay(t *testing.T) {
	r := &Runner{}
	now := time.Now()

	r.pending = []pendingSample{
		{channelID: "old", slowmodeValue: 10, rateBefore: 30, appliedAt: now.Add(-config.EffectivenessSampleDelay - time.Minute)},
		{channelID: "fresh", slowmodeValue: 15, rateBefore: 40, appliedAt: now.Add(-time.Minute)},
		{channelID: "exact", slowmodeValue: 20, rateBefore: 50, appliedAt: now.Add(-config.EffectivenessSampleDelay)},
	}

	due := r.takeDue(now)

	dueIDs := make([]string, 0, len(due))
	for _, sample := range due {
		dueIDs = append(dueIDs, sample.channelID)
	}
	assert.ElementsMatch(t, []string{"old", "exact"}, dueIDs)

	// Fresh samples stay queued for the next tick.
	assert.Len(t, r.pending, 1)
	assert.Equal(t, "fresh", r.pending[0].channelID)
}

func TestAddPending(t *testing.T) {
	r := &Runner{}

	r.addPending("chan1", 12, 33.5)

	assert.Len(t, r.pending, 1)
	assert.Equal(t, "chan1", r.pending[0].channelID)
	assert.Equal(t, 12, r.pending[0].slowmodeValue)
	assert.InDelta(t, 33.5, r.pending[0].rateBefore, 1e-9)
	assert.WithinDuration(t, time.Now(), r.pending[0].appliedAt, time.Second)
}
