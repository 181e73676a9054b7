package fetcher

import (
	"context"
	"errors"

	roapiTypes "github.com/jaxron/roapi.go/pkg/api/types"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"go.uber.org/zap"
)

// ErrThumbnailUnavailable is returned while an avatar has not finished rendering.
var ErrThumbnailUnavailable = errors.New("avatar thumbnail unavailable")

// ThumbnailFetcher retrieves avatar image URLs.
type ThumbnailFetcher struct {
	client *api.Client
	cache  *cache.Cache
	logger *zap.Logger
}

// NewThumbnailFetcher creates a ThumbnailFetcher.
func NewThumbnailFetcher(client *api.Client, c *cache.Cache, logger *zap.Logger) *ThumbnailFetcher {
	return &ThumbnailFetcher{
		client: client,
		cache:  c,
		logger: logger.Named("thumbnail_fetcher"),
	}
}

// GetAvatarURL returns the full-body avatar render URL of a user.
// Pending or blocked renders are not cached.
func (t *ThumbnailFetcher) GetAvatarURL(ctx context.Context, userID uint64) (string, error) {
	if url, ok := cache.Lookup[string](t.cache, cache.KindAvatar, userID); ok {
		return url, nil
	}

	resp, err := t.client.GetAvatarThumbnail(ctx, userID)
	if err != nil {
		return "", err
	}

	for _, data := range resp.Data {
		if data.TargetID != userID || data.State != roapiTypes.ThumbnailStateCompleted ||
			data.ImageURL == nil || *data.ImageURL == "" {
			continue
		}

		t.cache.Set(cache.KindAvatar, userID, *data.ImageURL)

		return *data.ImageURL, nil
	}

	t.logger.Debug("Avatar thumbnail not ready", zap.Uint64("userID", userID))

	return "", ErrThumbnailUnavailable
}
