package fetcher

import (
	"context"
	"errors"

	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"go.uber.org/zap"
)

// ErrUserNotFound indicates that Roblox has no such user.
var ErrUserNotFound = errors.New("roblox user not found")

// UserFetcher retrieves user profiles.
type UserFetcher struct {
	client *api.Client
	cache  *cache.Cache
	logger *zap.Logger
}

// NewUserFetcher creates a UserFetcher.
func NewUserFetcher(client *api.Client, c *cache.Cache, logger *zap.Logger) *UserFetcher {
	return &UserFetcher{
		client: client,
		cache:  c,
		logger: logger.Named("user_fetcher"),
	}
}

// GetProfile returns the profile of a user, from cache when fresh.
// A rejected lookup is reported as ErrUserNotFound.
func (u *UserFetcher) GetProfile(ctx context.Context, userID uint64) (*types.Profile, error) {
	if profile, ok := cache.Lookup[*types.Profile](u.cache, cache.KindProfile, userID); ok {
		return profile, nil
	}

	resp, err := u.client.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, api.ErrUpstreamRejected) {
			return nil, errors.Join(ErrUserNotFound, err)
		}

		return nil, err
	}

	profile := &types.Profile{
		ID:          resp.ID,
		Name:        resp.Name,
		DisplayName: resp.DisplayName,
		Description: resp.Description,
		Created:     resp.Created,
		IsBanned:    resp.IsBanned,
	}

	u.cache.Set(cache.KindProfile, userID, profile)

	u.logger.Debug("Fetched user profile",
		zap.Uint64("userID", userID),
		zap.String("name", profile.Name))

	return profile, nil
}
