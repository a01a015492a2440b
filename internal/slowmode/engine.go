// internal/slowmode/engine.go

// Package slowmode implements the adaptive rate-limit decision engine. Each
// invocation is a pure function of freshly read context: current message
// rate, historical baseline, short-term velocity, and the effectiveness of
// past interventions are fused into an urgency score, mapped to a slowmode
// value, and damped with hysteresis against the currently applied value.
package slowmode

import (
	"fmt"
	"math"
	"strings"
	"time"

	"discord-slowmode-bot/internal/analytics"
	"discord-slowmode-bot/internal/models"
)

const (
	MinSlowmode = 0
	MaxSlowmode = 21600 // Discord's 6-hour ceiling

	// Sub-score weights; must sum to 1.0.
	currentRateWeight   = 0.4
	historicalWeight    = 0.3
	velocityWeight      = 0.2
	effectivenessWeight = 0.1

	// Urgency at or below this floor never triggers a limit.
	urgencyFloor = 0.2

	// Hysteresis: changes smaller than the dead zone are suppressed, larger
	// ones ramp by at most maxChangePerUpdate seconds per invocation.
	hysteresisDeadZone = 5
	maxChangePerUpdate = 30
	notifyThreshold    = 15
)

// Store is the persistence surface the engine reads from.
type Store interface {
	MessageRate(channelID string, windowSeconds int) (float64, error)
	GetGuildConfig(guildID string) (*models.GuildConfig, error)
	GetChannelConfig(channelID, guildID string) (*models.ChannelConfig, error)
	ExpectedActivity(channelID string, dayOfWeek, hour int) (*float64, error)
	EffectivenessScore(channelID string) (float64, error)
}

// Context is the per-decision snapshot the engine computes from. Rebuilt on
// every decision, never persisted.
type Context struct {
	ChannelID       string
	GuildID         string
	CurrentRate     float64 // messages/minute over a 60s window
	Threshold       int
	CurrentSlowmode int
	HistoricalRate  *float64 // nil when no baseline exists
}

// Decision is the engine output for one channel.
type Decision struct {
	SlowmodeSeconds int
	Confidence      float64
	Reasoning       string
	Factors         map[string]float64
	ShouldNotify    bool
}

type Engine struct {
	store Store
	now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Calculate computes the optimal slowmode for a channel assuming no limit is
// currently applied (cold-start / advisory mode).
func (e *Engine) Calculate(channelID, guildID string) (*Decision, error) {
	return e.calculate(channelID, guildID, 0)
}

// CalculateWithCurrent computes the optimal slowmode given the value the
// platform currently has applied; hysteresis is evaluated against it.
func (e *Engine) CalculateWithCurrent(channelID, guildID string, currentSlowmode int) (*Decision, error) {
	return e.calculate(channelID, guildID, currentSlowmode)
}

func (e *Engine) calculate(channelID, guildID string, currentSlowmode int) (*Decision, error) {
	ctx, err := e.buildContext(channelID, guildID, currentSlowmode)
	if err != nil {
		return nil, fmt.Errorf("building slowmode context for channel %s: %w", channelID, err)
	}

	rateScore := calculateRateScore(ctx)
	historicalScore := calculateHistoricalScore(ctx)

	velocityScore, err := e.calculateVelocityScore(channelID)
	if err != nil {
		return nil, fmt.Errorf("calculating velocity for channel %s: %w", channelID, err)
	}

	effectivenessScore, err := e.calculateEffectivenessScore(channelID)
	if err != nil {
		return nil, fmt.Errorf("calculating effectiveness for channel %s: %w", channelID, err)
	}

	urgencyScore := currentRateWeight*rateScore +
		historicalWeight*historicalScore +
		velocityWeight*velocityScore +
		effectivenessWeight*effectivenessScore

	targetSlowmode := mapToSlowmode(urgencyScore, ctx.Threshold)
	finalSlowmode := applyHysteresis(targetSlowmode, ctx.CurrentSlowmode)

	return &Decision{
		SlowmodeSeconds: finalSlowmode,
		Confidence:      calculateConfidence(urgencyScore, rateScore),
		Reasoning:       buildReasoning(ctx, urgencyScore, finalSlowmode),
		Factors: map[string]float64{
			"rate_score":          rateScore,
			"historical_score":    historicalScore,
			"velocity_score":      velocityScore,
			"effectiveness_score": effectivenessScore,
			"urgency_score":       urgencyScore,
		},
		ShouldNotify: abs(finalSlowmode-ctx.CurrentSlowmode) >= notifyThreshold,
	}, nil
}

func (e *Engine) buildContext(channelID, guildID string, currentSlowmode int) (*Context, error) {
	channelConfig, err := e.store.GetChannelConfig(channelID, guildID)
	if err != nil {
		return nil, err
	}
	guildConfig, err := e.store.GetGuildConfig(guildID)
	if err != nil {
		return nil, err
	}

	currentRate, err := e.store.MessageRate(channelID, 60)
	if err != nil {
		return nil, err
	}

	threshold := guildConfig.DefaultThreshold
	if channelConfig.Threshold != nil {
		threshold = *channelConfig.Threshold
	}

	dayOfWeek, hour := analytics.DayHour(e.now())
	historicalRate, err := e.store.ExpectedActivity(channelID, dayOfWeek, hour)
	if err != nil {
		return nil, err
	}

	return &Context{
		ChannelID:       channelID,
		GuildID:         guildID,
		CurrentRate:     currentRate,
		Threshold:       threshold,
		CurrentSlowmode: currentSlowmode,
		HistoricalRate:  historicalRate,
	}, nil
}

// normalize scales a value onto [0, 1] against a maximum.
func normalize(value, max float64) float64 {
	return math.Min(value/max, 1.0)
}

func calculateRateScore(ctx *Context) float64 {
	if ctx.Threshold == 0 {
		return 0
	}
	return normalize(ctx.CurrentRate/float64(ctx.Threshold), 5.0)
}

// calculateHistoricalScore penalises positive deviation from the learned
// baseline, ignoring a 1.0 msg/min cushion. Quiet channels are never
// rewarded; only bursts above normal score.
func calculateHistoricalScore(ctx *Context) float64 {
	if ctx.HistoricalRate == nil || *ctx.HistoricalRate == 0 {
		return 0
	}
	deviation := ctx.CurrentRate - *ctx.HistoricalRate
	return normalize(math.Max(0, deviation-1.0), 3.0)
}

func (e *Engine) calculateVelocityScore(channelID string) (float64, error) {
	rate1m, err := e.store.MessageRate(channelID, 60)
	if err != nil {
		return 0, err
	}
	rate5m, err := e.store.MessageRate(channelID, 300)
	if err != nil {
		return 0, err
	}

	rate5mAvg := rate5m / 5
	if rate5mAvg == 0 {
		return 0, nil
	}

	velocity := (rate1m - rate5mAvg) / 5
	return normalize(math.Max(0, velocity), 2.0), nil
}

func (e *Engine) calculateEffectivenessScore(channelID string) (float64, error) {
	score, err := e.store.EffectivenessScore(channelID)
	if err != nil {
		return 0, err
	}
	if score > 0 {
		return 1.0 - score, nil
	}
	// Neutral prior when no intervention history exists.
	return 0.5, nil
}

// mapToSlowmode converts an urgency score into a target slowmode duration.
// The exponential ramp makes urgency near the ceiling produce
// disproportionately larger slowdowns.
func mapToSlowmode(urgencyScore float64, threshold int) int {
	if urgencyScore <= urgencyFloor {
		return 0
	}

	base := math.Exp(urgencyScore*4) - 1
	scale := float64(threshold) / 10.0
	slowmode := int(base * scale * 3)

	if slowmode < MinSlowmode {
		return MinSlowmode
	}
	if slowmode > MaxSlowmode {
		return MaxSlowmode
	}
	return slowmode
}

// applyHysteresis suppresses changes inside the dead zone and rate-limits
// larger ones to maxChangePerUpdate seconds per invocation in either
// direction.
func applyHysteresis(target, current int) int {
	diff := abs(target - current)
	if diff < hysteresisDeadZone {
		return current
	}

	if target > current {
		return min(target, current+maxChangePerUpdate)
	}
	return max(target, current-maxChangePerUpdate)
}

func calculateConfidence(urgencyScore, rateScore float64) float64 {
	urgencyClarity := math.Abs(urgencyScore-0.5) * 2
	rateClarity := math.Min(rateScore, 1.0)

	confidence := urgencyClarity*0.6 + rateClarity*0.4
	return math.Min(math.Max(confidence, 0.1), 1.0)
}

func buildReasoning(ctx *Context, urgencyScore float64, finalSlowmode int) string {
	if finalSlowmode == 0 {
		return fmt.Sprintf("Activity (%.1f msg/min) is below threshold (%d)",
			ctx.CurrentRate, ctx.Threshold)
	}

	parts := []string{
		fmt.Sprintf("Current Rate: %.1f msg/min (Threshold: %d)", ctx.CurrentRate, ctx.Threshold),
	}

	if ctx.HistoricalRate != nil && *ctx.HistoricalRate != 0 {
		deviation := (ctx.CurrentRate / *ctx.HistoricalRate - 1) * 100
		if math.Abs(deviation) >= 20 {
			direction := "Above"
			if deviation < 0 {
				direction = "Below"
			}
			parts = append(parts, fmt.Sprintf("%s normal by %.0f", direction, math.Abs(deviation)))
		}
	}

	parts = append(parts, fmt.Sprintf("Urgency Score: %.2f", urgencyScore))

	return strings.Join(parts, " | ")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
