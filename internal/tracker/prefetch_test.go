package tracker_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/presencewatch/internal/database/types"
	"github.com/robalyx/presencewatch/internal/database/types/enum"
	"github.com/robalyx/presencewatch/internal/roblox/api"
	"github.com/robalyx/presencewatch/internal/roblox/cache"
	"github.com/robalyx/presencewatch/internal/roblox/fetcher"
	"github.com/robalyx/presencewatch/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// presenceServer answers every endpoint the status fetcher uses and
// records the size of each presence request.
type presenceServer struct {
	mu      sync.Mutex
	batches []int
}

func (s *presenceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/presence/users":
		var req struct {
			UserIDs []uint64 `json:"userIds"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &req)

		s.mu.Lock()
		s.batches = append(s.batches, len(req.UserIDs))
		s.mu.Unlock()

		parts := make([]string, 0, len(req.UserIDs))
		for _, id := range req.UserIDs {
			parts = append(parts, fmt.Sprintf(`{"userPresenceType":2,"lastLocation":"Game","placeId":1,"userId":%d}`, id))
		}

		fmt.Fprintf(w, `{"userPresences":[%s]}`, strings.Join(parts, ","))

	case r.URL.Path == "/v1/batch":
		_, _ = io.WriteString(w, `{"data":[]}`)

	case strings.HasPrefix(r.URL.Path, "/v1/users/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
		fmt.Fprintf(w, `{"id":%s,"name":"user%s","displayName":"User %s","created":"2015-06-01T00:00:00Z"}`, id, id, id)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *presenceServer) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int(nil), s.batches...)
}

func TestCyclePrefetchesPresencesInOneBatch(t *testing.T) {
	t.Parallel()

	fake := &presenceServer{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)

	client, err := api.New(api.Options{
		UsersURL:       srv.URL,
		ThumbnailsURL:  srv.URL,
		PresenceURL:    srv.URL,
		RequestTimeout: time.Second,
		ConnectTimeout: time.Second,
		MaxAttempts:    1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	var (
		clockMu sync.Mutex
		now     = time.Unix(1_700_000_000, 0)
	)

	responseCache := cache.New(cache.Options{
		MaxEntries: 100,
		TTLs: map[cache.Kind]time.Duration{
			cache.KindProfile:  time.Hour,
			cache.KindAvatar:   time.Hour,
			cache.KindPresence: 10 * time.Second,
		},
		Clock: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()

			return now
		},
	})

	store := newMemoryStore()
	withChannel(store)

	// Already online, so no change needs confirming.
	for _, id := range []uint64{1, 2, 3} {
		store.add(types.TrackedPlayer{
			GuildID:     guildID,
			UserID:      id,
			DisplayName: fmt.Sprintf("User %d", id),
			Username:    fmt.Sprintf("user%d", id),
			LastStatus:  enum.PlayerStatusOnline,
		})
	}

	store.add(types.TrackedPlayer{
		GuildID: snowflake.ID(2), UserID: 1, DisplayName: "User 1", Username: "user1", LastStatus: enum.PlayerStatusOnline,
	})

	statuses := fetcher.NewStatusFetcher(client, responseCache, logger)
	worker := newWorker(t, store, statuses, &recordingDispatcher{}, tracker.Options{Mode: enum.NotifyModeEdge})

	stats := worker.RunCycle(t.Context())
	assert.Equal(t, 4, stats.Checked)
	assert.Equal(t, []int{3}, fake.sizes())

	clockMu.Lock()
	now = now.Add(11 * time.Second)
	clockMu.Unlock()

	worker.RunCycle(t.Context())
	assert.Equal(t, []int{3, 3}, fake.sizes())
}
