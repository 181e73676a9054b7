package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/robalyx/presencewatch/internal/notify"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"github.com/robalyx/presencewatch/internal/roblox/status"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/robalyx/presencewatch/internal/tracker/core"
	"github.com/robalyx/presencewatch/pkg/utils"
	"go.uber.org/zap"
)

// WorkerType is the heartbeat type reported by the tracker.
const WorkerType = "tracker"

// StatusSource reads the current status of a Roblox user.
type StatusSource interface {
	GetStatus(ctx context.Context, userID uint64, fallback status.Names) *types.PlayerStatusInfo
	PrefetchPresences(ctx context.Context, userIDs []uint64) int
	Invalidate(kind cache.Kind, userID uint64)
}

// Dispatcher delivers notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, decision notify.Decision) (*snowflake.ID, error)
}

// Options controls the reconciliation loop.
type Options struct {
	Interval      time.Duration
	PlayerDelay   time.Duration
	Mode          enum.NotifyMode
	UnknownPolicy enum.UnknownPolicy
}

// OptionsFromConfig converts the tracker config section.
func OptionsFromConfig(cfg *config.Tracker) (Options, error) {
	mode, err := enum.NotifyModeString(strings.TrimSpace(cfg.Mode))
	if err != nil {
		return Options{}, fmt.Errorf("%w: tracker.mode: %w", config.ErrInvalidConfig, err)
	}

	policy, err := enum.UnknownPolicyString(strings.TrimSpace(cfg.UnknownPolicy))
	if err != nil {
		return Options{}, fmt.Errorf("%w: tracker.unknown_policy: %w", config.ErrInvalidConfig, err)
	}

	return Options{
		Interval:      time.Duration(cfg.Interval) * time.Second,
		PlayerDelay:   time.Duration(cfg.PlayerDelay) * time.Millisecond,
		Mode:          mode,
		UnknownPolicy: policy,
	}, nil
}

// CycleStats summarizes one pass over every tracked player.
type CycleStats struct {
	Checked    int
	Dispatched int
	Unknown    int
	Skipped    int
	Failed     int
}

// outcome is what happened to a single player.
type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeUpdated
	outcomeDispatched
	outcomeUnknown
	outcomeSkipped
)

// Worker polls every tracked player and keeps the guild notifications in
// sync with their presence. Players are handled one at a time.
type Worker struct {
	store      database.Store
	statuses   StatusSource
	dispatcher Dispatcher
	reporter   *core.StatusReporter
	opts       Options
	logger     *zap.Logger
}

// New creates a tracker worker. reporter may be nil.
func New(
	store database.Store, statuses StatusSource, dispatcher Dispatcher,
	reporter *core.StatusReporter, opts Options, logger *zap.Logger,
) *Worker {
	return &Worker{
		store:      store,
		statuses:   statuses,
		dispatcher: dispatcher,
		reporter:   reporter,
		opts:       opts,
		logger:     logger.Named("tracker"),
	}
}

// Start waits for ready to close, then runs a cycle immediately and once
// per interval until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, ready <-chan struct{}) {
	w.logger.Info("Tracker waiting for Discord connection")

	select {
	case <-ready:
	case <-ctx.Done():
		return
	}

	w.logger.Info("Tracker started",
		zap.String("workerID", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.opts.Interval),
		zap.String("mode", w.opts.Mode.String()),
		zap.String("unknownPolicy", w.opts.UnknownPolicy.String()))

	w.reporter.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		w.reporter.Stop(stopCtx)
	}()

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		w.runCycleSafely(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("Tracker shutting down")
			return
		case <-ticker.C:
		}
	}
}

// runCycleSafely keeps a panicking cycle from taking the loop down.
func (w *Worker) runCycleSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Tracker cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
			w.reporter.SetHealthy(false)
		}
	}()

	w.RunCycle(ctx)
}

// RunCycle processes every tracked player once. A failing player is logged
// and the cycle moves on to the next one.
func (w *Worker) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats

	players, err := w.store.ListTrackedPlayers(ctx, nil)
	if err != nil {
		w.logger.Error("Failed to list tracked players", zap.Error(err))
		w.reporter.SetHealthy(false)

		return stats
	}

	w.reporter.SetHealthy(true)
	w.reporter.SetTracked(len(players))

	w.prefetchPresences(ctx, players)

	for i, player := range players {
		if utils.ContextGuard(ctx) {
			break
		}

		w.reporter.UpdateStatus(fmt.Sprintf("Checking player %d/%d", i+1, len(players)), i*100/len(players))

		result, err := w.processPlayerSafely(ctx, player)
		stats.Checked++

		switch {
		case err != nil:
			stats.Failed++
			w.logger.Error("Failed to process player",
				zap.Uint64("guildID", uint64(player.GuildID)),
				zap.Uint64("userID", player.UserID),
				zap.Error(err))
		case result == outcomeDispatched:
			stats.Dispatched++
		case result == outcomeUnknown:
			stats.Unknown++
		case result == outcomeSkipped:
			stats.Skipped++
		}

		if !utils.IntervalSleep(ctx, w.opts.PlayerDelay, w.logger, "tracker") {
			break
		}
	}

	w.reporter.UpdateStatus("Idle", 100)

	w.logger.Debug("Tracker cycle finished",
		zap.Int("checked", stats.Checked),
		zap.Int("dispatched", stats.Dispatched),
		zap.Int("unknown", stats.Unknown),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))

	return stats
}

// prefetchPresences warms the presence cache for every distinct user with
// batched requests so the per-player reads below are served from it.
func (w *Worker) prefetchPresences(ctx context.Context, players []*types.TrackedPlayer) {
	seen := make(map[uint64]struct{}, len(players))
	userIDs := make([]uint64, 0, len(players))

	for _, player := range players {
		if _, ok := seen[player.UserID]; ok {
			continue
		}

		seen[player.UserID] = struct{}{}
		userIDs = append(userIDs, player.UserID)
	}

	if len(userIDs) == 0 {
		return
	}

	found := w.statuses.PrefetchPresences(ctx, userIDs)

	w.logger.Debug("Prefetched presences",
		zap.Int("users", len(userIDs)),
		zap.Int("found", found))
}

func (w *Worker) processPlayerSafely(ctx context.Context, player *types.TrackedPlayer) (result outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Player processing panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrPlayerPanicked, r)
		}
	}()

	return w.processPlayer(ctx, player)
}

// ErrPlayerPanicked is reported for a player whose processing panicked.
var ErrPlayerPanicked = errors.New("player processing panicked")

// processPlayer polls one player and applies the resulting action.
func (w *Worker) processPlayer(ctx context.Context, listed *types.TrackedPlayer) (outcome, error) {
	// Re-read the row since commands may have changed or removed it.
	player, err := w.store.GetTrackedPlayer(ctx, listed.GuildID, listed.UserID)
	if errors.Is(err, database.ErrPlayerNotFound) {
		return outcomeSkipped, nil
	}

	if err != nil {
		return outcomeUnchanged, fmt.Errorf("failed to load player: %w", err)
	}

	fallback := status.Names{DisplayName: player.DisplayName, Username: player.Username}
	prev := player.LastStatus

	info := w.statuses.GetStatus(ctx, player.UserID, fallback)
	if info.Status != enum.PlayerStatusUnknown && info.Status != prev {
		// Confirm a change against a fresh read rather than a cached one.
		w.statuses.Invalidate(cache.KindPresence, player.UserID)
		info = w.statuses.GetStatus(ctx, player.UserID, fallback)
	}

	next := info.Status
	if next == enum.PlayerStatusUnknown {
		if w.opts.UnknownPolicy == enum.UnknownPolicyKeep {
			w.logger.Debug("Presence unknown, keeping stored state",
				zap.Uint64("userID", player.UserID))

			return outcomeUnknown, nil
		}

		next = enum.PlayerStatusOffline
	}

	action := Decide(prev, next, w.opts.Mode)

	setting, err := w.store.GetGuildSetting(ctx, player.GuildID)
	if err != nil {
		if !errors.Is(err, database.ErrSettingNotFound) {
			return outcomeUnchanged, fmt.Errorf("failed to load guild settings: %w", err)
		}

		setting = nil
	}

	result := outcomeUpdated
	messageID := player.MessageID

	switch {
	case !setting.HasDestination():
		messageID = nil
	case action == ActionClear:
		messageID = nil
	case action.Dispatches():
		decision := notify.NewDecision(player, info, next, setting)

		ref, err := w.dispatcher.Dispatch(ctx, decision)
		if err != nil {
			// The transition is still recorded so the same edge is never
			// announced twice.
			w.logger.Warn("Failed to dispatch notification",
				zap.Uint64("guildID", uint64(player.GuildID)),
				zap.Uint64("userID", player.UserID),
				zap.String("action", action.String()),
				zap.Error(err))
		} else {
			result = outcomeDispatched
		}

		messageID = ref
	}

	if next != prev {
		w.logger.Info("Player status changed",
			zap.Uint64("guildID", uint64(player.GuildID)),
			zap.Uint64("userID", player.UserID),
			zap.String("from", prev.String()),
			zap.String("to", next.String()),
			zap.String("action", action.String()))
	}

	state := types.PlayerState{
		Status:      next,
		MessageID:   messageID,
		DisplayName: info.DisplayName,
		Username:    info.Username,
	}

	if result != outcomeDispatched && unchanged(player, state) {
		return outcomeUnchanged, nil
	}

	err = w.store.UpdatePlayerState(ctx, player.GuildID, player.UserID, state)
	if errors.Is(err, database.ErrPlayerNotFound) {
		return outcomeSkipped, nil
	}

	if err != nil {
		return outcomeUnchanged, fmt.Errorf("failed to save player state: %w", err)
	}

	return result, nil
}

// unchanged reports whether writing state would leave the row as it is.
func unchanged(player *types.TrackedPlayer, state types.PlayerState) bool {
	if player.LastStatus != state.Status {
		return false
	}

	if (player.MessageID == nil) != (state.MessageID == nil) {
		return false
	}

	if player.MessageID != nil && *player.MessageID != *state.MessageID {
		return false
	}

	return (state.DisplayName == "" || state.DisplayName == player.DisplayName) &&
		(state.Username == "" || state.Username == player.Username)
}
