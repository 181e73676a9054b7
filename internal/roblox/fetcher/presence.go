package fetcher

import (
	"context"
	"sync"
	"time"

	roapiTypes "github.com/jaxron/roapi.go/pkg/api/types"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	// PresenceBatchSize is the most users the presence endpoint accepts at once.
	PresenceBatchSize = 50
	// maxPresenceBatches bounds concurrent batch requests.
	maxPresenceBatches = 4
)

// PresenceFetcher retrieves user presence.
type PresenceFetcher struct {
	client *api.Client
	cache  *cache.Cache
	clock  func() time.Time
	logger *zap.Logger
}

// NewPresenceFetcher creates a PresenceFetcher.
func NewPresenceFetcher(client *api.Client, c *cache.Cache, logger *zap.Logger) *PresenceFetcher {
	return &PresenceFetcher{
		client: client,
		cache:  c,
		clock:  time.Now,
		logger: logger.Named("presence_fetcher"),
	}
}

// GetPresence returns the presence of one user. A nil presence with a nil
// error means Roblox returned nothing for the user.
func (p *PresenceFetcher) GetPresence(ctx context.Context, userID uint64) (*types.Presence, error) {
	if presence, ok := cache.Lookup[*types.Presence](p.cache, cache.KindPresence, userID); ok {
		return presence, nil
	}

	presences, err := p.fetchBatch(ctx, []uint64{userID})
	if err != nil {
		return nil, err
	}

	return presences[userID], nil
}

// GetPresences returns the presences of many users. Cached entries are used
// where fresh and the rest are fetched in concurrent batches. Users whose
// batch failed are missing from the result.
func (p *PresenceFetcher) GetPresences(ctx context.Context, userIDs []uint64) map[uint64]*types.Presence {
	var (
		results  = make(map[uint64]*types.Presence, len(userIDs))
		uncached = make([]uint64, 0, len(userIDs))
		mu       sync.Mutex
	)

	for _, id := range userIDs {
		if presence, ok := cache.Lookup[*types.Presence](p.cache, cache.KindPresence, id); ok {
			results[id] = presence
			continue
		}

		uncached = append(uncached, id)
	}

	if len(uncached) == 0 {
		return results
	}

	workers := pool.New().WithContext(ctx).WithMaxGoroutines(maxPresenceBatches)

	for i := 0; i < len(uncached); i += PresenceBatchSize {
		batch := uncached[i:min(i+PresenceBatchSize, len(uncached))]

		workers.Go(func(ctx context.Context) error {
			presences, err := p.fetchBatch(ctx, batch)
			if err != nil {
				p.logger.Error("Failed to fetch presence batch",
					zap.Int("batchSize", len(batch)),
					zap.Error(err))

				return nil // Don't fail the whole request for one batch
			}

			mu.Lock()
			for id, presence := range presences {
				results[id] = presence
			}
			mu.Unlock()

			return nil
		})
	}

	_ = workers.Wait()

	p.logger.Debug("Finished fetching presences",
		zap.Int("requested", len(userIDs)),
		zap.Int("fetched", len(uncached)),
		zap.Int("found", len(results)))

	return results
}

// fetchBatch requests up to PresenceBatchSize users and caches the results.
func (p *PresenceFetcher) fetchBatch(ctx context.Context, userIDs []uint64) (map[uint64]*types.Presence, error) {
	resp, err := p.client.GetPresences(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	now := p.clock()
	presences := make(map[uint64]*types.Presence, len(resp.UserPresences))

	for _, raw := range resp.UserPresences {
		presence := convertPresence(raw, now)
		presences[raw.UserID] = presence
		p.cache.Set(cache.KindPresence, raw.UserID, presence)
	}

	return presences, nil
}

func convertPresence(raw roapiTypes.UserPresenceResponse, observedAt time.Time) *types.Presence {
	presence := &types.Presence{
		Type:         types.PresenceType(raw.UserPresenceType),
		LastLocation: raw.LastLocation,
		PlaceID:      raw.PlaceID,
		RootPlaceID:  raw.RootPlaceID,
		UniverseID:   raw.UniverseID,
		UserID:       raw.UserID,
		ObservedAt:   observedAt,
	}

	if raw.GameID != nil {
		presence.GameID = *raw.GameID
	}

	if raw.LastOnline != nil {
		presence.LastOnline = *raw.LastOnline
	}

	return presence
}
