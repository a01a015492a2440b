// internal/tasks/runner.go

// Package tasks owns the periodic background jobs: the slowmode control loop,
// the hourly pattern and analytics aggregations, and retention cleanup. Each
// job runs in its own goroutine and is its own failure isolation boundary;
// they coordinate only through the shared store.
package tasks

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"discord-slowmode-bot/internal/analytics"
	"discord-slowmode-bot/internal/config"
	"discord-slowmode-bot/internal/database"
	"discord-slowmode-bot/internal/slowmode"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"
)

// Runner drives the periodic jobs over a Discord session and the store.
type Runner struct {
	session *discordgo.Session
	db      *database.DB
	engine  *slowmode.Engine
	logger  *slog.Logger

	mu      sync.Mutex
	pending []pendingSample

	wg sync.WaitGroup
}

// pendingSample tracks an applied slowmode increase awaiting its post-change
// rate measurement.
type pendingSample struct {
	channelID     string
	slowmodeValue int
	rateBefore    float64
	appliedAt     time.Time
}

func NewRunner(session *discordgo.Session, db *database.DB, engine *slowmode.Engine, logger *slog.Logger) *Runner {
	return &Runner{
		session: session,
		db:      db,
		engine:  engine,
		logger:  logger,
	}
}

// Start launches all background loops. They stop gracefully when ctx is
// cancelled: in-flight iterations finish, new ones do not start.
func (r *Runner) Start(ctx context.Context) {
	r.runLoop(ctx, "slowmode", config.SlowmodeCheckInterval, r.updateSlowmodes)
	r.runLoop(ctx, "patterns", config.HourlyTaskInterval, r.aggregatePatterns)
	r.runLoop(ctx, "analytics", config.HourlyTaskInterval, r.aggregateAnalytics)
	r.runLoop(ctx, "cleanup", config.HourlyTaskInterval, r.cleanup)

	r.logger.Info("background tasks started")
}

// Wait blocks until all loops have finished their in-flight iteration.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("task loop stopped", "task", name)
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// updateSlowmodes runs one control-loop cycle: guilds are processed
// concurrently up to a worker limit, channels within a guild sequentially.
func (r *Runner) updateSlowmodes(ctx context.Context) {
	r.samplePending()

	guilds := r.session.State.Guilds

	var g errgroup.Group
	g.SetLimit(config.MaxConcurrentGuilds)

	for _, guild := range guilds {
		guildID := guild.ID
		g.Go(func() error {
			r.updateGuild(ctx, guildID)
			return nil
		})
	}

	// Per-guild errors are handled inside updateGuild; the group only bounds
	// concurrency.
	_ = g.Wait()
}

func (r *Runner) updateGuild(ctx context.Context, guildID string) {
	guildConfig, err := r.db.GetGuildConfig(guildID)
	if err != nil {
		r.logger.Error("failed to load guild config", "guild_id", guildID, "error", err)
		return
	}
	if !guildConfig.IsEnabled {
		return
	}

	channelIDs, err := r.db.EnabledChannels(guildID)
	if err != nil {
		r.logger.Error("failed to list enabled channels", "guild_id", guildID, "error", err)
		return
	}

	if len(channelIDs) > 0 {
		// Jitter before the batch to avoid thundering-herd writes against
		// the Discord API.
		jitter := time.Duration(100+rand.Intn(900)) * time.Millisecond
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter):
		}
	}

	for _, channelID := range channelIDs {
		if ctx.Err() != nil {
			return
		}
		if err := r.updateChannel(guildID, channelID); err != nil {
			r.logger.Error("failed to update slowmode",
				"guild_id", guildID, "channel_id", channelID, "error", err)
		}
	}
}

func (r *Runner) updateChannel(guildID, channelID string) error {
	channel, err := r.session.State.Channel(channelID)
	if err != nil {
		channel, err = r.session.Channel(channelID)
		if err != nil {
			return err
		}
	}
	if channel.Type != discordgo.ChannelTypeGuildText {
		return nil
	}

	currentSlowmode := channel.RateLimitPerUser

	decision, err := r.engine.CalculateWithCurrent(channelID, guildID, currentSlowmode)
	if err != nil {
		return err
	}

	if decision.SlowmodeSeconds == currentSlowmode {
		return nil
	}

	if _, err := r.session.ChannelEdit(channelID, &discordgo.ChannelEdit{
		RateLimitPerUser: &decision.SlowmodeSeconds,
	}); err != nil {
		return err
	}

	currentRate, err := r.db.MessageRate(channelID, 60)
	if err != nil {
		return err
	}

	if err := r.db.RecordSlowmodeChange(channelID, currentSlowmode,
		decision.SlowmodeSeconds, decision.Reasoning, currentRate, decision.Confidence); err != nil {
		return err
	}

	if decision.SlowmodeSeconds > currentSlowmode {
		r.addPending(channelID, decision.SlowmodeSeconds, currentRate)
	}

	r.logger.Info("updated slowmode",
		"guild_id", guildID,
		"channel_id", channelID,
		"old", currentSlowmode,
		"new", decision.SlowmodeSeconds,
		"rate", currentRate,
		"confidence", decision.Confidence,
		"notify", decision.ShouldNotify,
	)

	return nil
}

func (r *Runner) addPending(channelID string, slowmodeValue int, rateBefore float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, pendingSample{
		channelID:     channelID,
		slowmodeValue: slowmodeValue,
		rateBefore:    rateBefore,
		appliedAt:     time.Now(),
	})
}

// samplePending measures the post-change rate for interventions whose sample
// delay has elapsed and records their effectiveness.
func (r *Runner) samplePending() {
	due := r.takeDue(time.Now())

	for _, sample := range due {
		rateAfter, err := r.db.MessageRate(sample.channelID, 60)
		if err != nil {
			r.logger.Error("failed to measure post-change rate",
				"channel_id", sample.channelID, "error", err)
			continue
		}

		duration := int(time.Since(sample.appliedAt).Seconds())
		if err := r.db.RecordEffectiveness(sample.channelID, sample.slowmodeValue,
			sample.rateBefore, rateAfter, duration); err != nil {
			r.logger.Error("failed to record effectiveness",
				"channel_id", sample.channelID, "error", err)
		}
	}
}

// takeDue removes and returns pending samples older than the sample delay.
func (r *Runner) takeDue(now time.Time) []pendingSample {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due, remaining []pendingSample
	for _, sample := range r.pending {
		if now.Sub(sample.appliedAt) >= config.EffectivenessSampleDelay {
			due = append(due, sample)
		} else {
			remaining = append(remaining, sample)
		}
	}
	r.pending = remaining
	return due
}

// aggregatePatterns folds the just-completed hour into the per-(channel,
// weekday, hour) baselines. Idle channels keep their stale patterns.
func (r *Runner) aggregatePatterns(ctx context.Context) {
	start, end := analytics.CompletedHour(time.Now())
	dayOfWeek, hour := analytics.DayHour(time.Unix(start, 0))

	channelIDs, err := r.db.ActiveChannels(start, end)
	if err != nil {
		r.logger.Error("failed to list active channels", "error", err)
		return
	}

	updated := 0
	for _, channelID := range channelIDs {
		if ctx.Err() != nil {
			return
		}
		if err := r.updatePattern(channelID, dayOfWeek, hour, start, end); err != nil {
			r.logger.Error("failed to update pattern",
				"channel_id", channelID, "error", err)
			continue
		}
		updated++
	}

	r.logger.Info("pattern aggregation complete",
		"channels", updated, "day_of_week", dayOfWeek, "hour", hour)
}

func (r *Runner) updatePattern(channelID string, dayOfWeek, hour int, start, end int64) error {
	count, err := r.db.MessageCount(channelID, start, end)
	if err != nil {
		return err
	}
	value := float64(count) / 60.0

	pattern, err := r.db.GetChannelPattern(channelID, dayOfWeek, hour)
	if err != nil {
		return err
	}

	mean, stddev, samples := value, 0.0, 1
	if pattern != nil {
		mean, stddev, samples = analytics.UpdatePattern(
			pattern.AvgMessageRate, pattern.StddevMessageRate, pattern.SampleCount, value)
	}

	return r.db.UpsertChannelPattern(channelID, dayOfWeek, hour, mean, stddev, samples)
}

// aggregateAnalytics rolls the completed hour into the analytics table.
func (r *Runner) aggregateAnalytics(ctx context.Context) {
	start, end := analytics.CompletedHour(time.Now())

	channelIDs, err := r.db.ActiveChannels(start, end)
	if err != nil {
		r.logger.Error("failed to list active channels", "error", err)
		return
	}

	for _, channelID := range channelIDs {
		if ctx.Err() != nil {
			return
		}
		if err := r.db.AggregateHourlyAnalytics(channelID, start, end); err != nil {
			r.logger.Error("failed to aggregate analytics",
				"channel_id", channelID, "error", err)
		}
	}
}

func (r *Runner) cleanup(_ context.Context) {
	if err := r.db.CleanupActivity(config.ActivityRetentionHours); err != nil {
		r.logger.Error("failed to clean up message activity", "error", err)
	}
	if err := r.db.CleanupAnalytics(config.AnalyticsRetentionDays); err != nil {
		r.logger.Error("failed to clean up analytics", "error", err)
	}
}
