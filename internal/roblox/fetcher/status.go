package fetcher

import (
	"context"

	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"github.com/robalyx/presencewatch/internal/roblox/status"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// StatusFetcher combines profile, avatar and presence lookups into one
// status reading per player.
type StatusFetcher struct {
	users      *UserFetcher
	thumbnails *ThumbnailFetcher
	presences  *PresenceFetcher
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewStatusFetcher creates a StatusFetcher and the fetchers it composes.
func NewStatusFetcher(client *api.Client, c *cache.Cache, logger *zap.Logger) *StatusFetcher {
	return &StatusFetcher{
		users:      NewUserFetcher(client, c, logger),
		thumbnails: NewThumbnailFetcher(client, c, logger),
		presences:  NewPresenceFetcher(client, c, logger),
		cache:      c,
		logger:     logger.Named("status_fetcher"),
	}
}

// Users returns the profile fetcher.
func (s *StatusFetcher) Users() *UserFetcher {
	return s.users
}

// Presences returns the presence fetcher.
func (s *StatusFetcher) Presences() *PresenceFetcher {
	return s.presences
}

// GetStatus looks up everything about a player concurrently. Lookup errors
// are logged and degrade the matching field to absent, so this never fails.
// A failed presence lookup yields PlayerStatusUnknown.
func (s *StatusFetcher) GetStatus(ctx context.Context, userID uint64, fallback status.Names) *types.PlayerStatusInfo {
	var (
		profile     *types.Profile
		presence    *types.Presence
		avatarURL   string
		presenceErr error
		wg          conc.WaitGroup
	)

	wg.Go(func() {
		var err error

		profile, err = s.users.GetProfile(ctx, userID)
		if err != nil {
			s.logger.Warn("Failed to fetch profile", zap.Uint64("userID", userID), zap.Error(err))
		}
	})

	wg.Go(func() {
		presence, presenceErr = s.presences.GetPresence(ctx, userID)
		if presenceErr != nil {
			s.logger.Warn("Failed to fetch presence", zap.Uint64("userID", userID), zap.Error(presenceErr))
		}
	})

	wg.Go(func() {
		var err error

		avatarURL, err = s.thumbnails.GetAvatarURL(ctx, userID)
		if err != nil {
			s.logger.Debug("Failed to fetch avatar", zap.Uint64("userID", userID), zap.Error(err))
		}
	})

	if recovered := wg.WaitAndRecover(); recovered != nil {
		s.logger.Error("Status lookup panicked",
			zap.Uint64("userID", userID),
			zap.String("panic", recovered.String()))

		presenceErr = recovered.AsError()
	}

	resolved := status.Resolve(profile, presence, presenceErr != nil, fallback)

	return &types.PlayerStatusInfo{
		UserID:      userID,
		Status:      resolved.Status,
		Profile:     profile,
		Presence:    presence,
		AvatarURL:   avatarURL,
		DisplayName: resolved.Names.DisplayName,
		Username:    resolved.Names.Username,
	}
}

// PrefetchPresences loads the presences of many users into the cache using
// batched requests and returns how many were found.
func (s *StatusFetcher) PrefetchPresences(ctx context.Context, userIDs []uint64) int {
	return len(s.presences.GetPresences(ctx, userIDs))
}

// ClearCache evicts every cached entry of one kind.
func (s *StatusFetcher) ClearCache(kind cache.Kind) {
	s.cache.Clear(kind)
}

// ClearAllCache empties the cache.
func (s *StatusFetcher) ClearAllCache() {
	s.cache.ClearAll()
}

// Invalidate evicts the cached entry of one kind for one user so the next
// lookup goes to Roblox.
func (s *StatusFetcher) Invalidate(kind cache.Kind, userID uint64) {
	s.cache.Delete(kind, userID)
}
