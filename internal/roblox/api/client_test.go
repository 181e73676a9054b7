package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	"github.com/jaxron/roapi.go/pkg/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const userBody = `{"id":1,"name":"a","displayName":"A","created":"2006-03-08T00:00:00Z"}`

func newTestClient(t *testing.T, baseURL string, mutate func(*Options)) *Client {
	t.Helper()

	opts := Options{
		UsersURL:       baseURL,
		ThumbnailsURL:  baseURL,
		PresenceURL:    baseURL,
		RequestTimeout: 2 * time.Second,
		ConnectTimeout: time.Second,
		MaxAttempts:    3,
		RetryDelay:     5 * time.Millisecond,
		MaxRetryDelay:  20 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}

	client, err := New(opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{UsersURL: "users.example"}, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/156", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":156,"name":"builderman","displayName":"Builder","created":"2006-03-08T00:00:00Z"}`)
	}))
	defer srv.Close()

	user, err := newTestClient(t, srv.URL, nil).GetUser(t.Context(), 156)
	require.NoError(t, err)
	assert.Equal(t, uint64(156), user.ID)
	assert.Equal(t, "builderman", user.Name)
	assert.Equal(t, "Builder", user.DisplayName)
	assert.Equal(t, 2006, user.Created.Year())
}

func TestGetUserInvalidResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":156}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).GetUser(t.Context(), 156)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGetUserZeroIDRejected(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).GetUser(t.Context(), 0)
	require.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Zero(t, calls.Load())
}

func TestGetAvatarThumbnailBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/batch", r.URL.Path)

		var reqs []types.ThumbnailRequest
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(body, &reqs))

		if assert.Len(t, reqs, 1) {
			assert.Equal(t, uint64(7), reqs[0].TargetID)
			assert.Equal(t, types.AvatarType, reqs[0].Type)
			assert.Equal(t, types.Size420x420, reqs[0].Size)
		}

		_, _ = io.WriteString(w, `{"data":[{"requestId":"7:avatar","targetId":7,"state":"Completed",`+
			`"imageUrl":"https://tr.rbxcdn.com/x.png"}]}`)
	}))
	defer srv.Close()

	thumb, err := newTestClient(t, srv.URL, nil).GetAvatarThumbnail(t.Context(), 7)
	require.NoError(t, err)
	require.Len(t, thumb.Data, 1)
	require.NotNil(t, thumb.Data[0].ImageURL)
	assert.Equal(t, "https://tr.rbxcdn.com/x.png", *thumb.Data[0].ImageURL)
	assert.Equal(t, types.ThumbnailStateCompleted, thumb.Data[0].State)
}

func TestGetPresencesPostsIDs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/presence/users", r.URL.Path)

		var req struct {
			UserIDs []uint64 `json:"userIds"`
		}
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, sonic.Unmarshal(body, &req))
		assert.Equal(t, []uint64{1, 2}, req.UserIDs)

		_, _ = io.WriteString(w, `{"userPresences":[
			{"userPresenceType":2,"lastLocation":"Jailbreak","placeId":606849621,"gameId":"abc","userId":1},
			{"userPresenceType":1,"lastLocation":"Website","placeId":null,"userId":2}
		]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL, nil).GetPresences(t.Context(), []uint64{1, 2})
	require.NoError(t, err)
	require.Len(t, resp.UserPresences, 2)
	assert.Equal(t, types.InGame, resp.UserPresences[0].UserPresenceType)
	require.NotNil(t, resp.UserPresences[0].PlaceID)
	assert.Equal(t, uint64(606849621), *resp.UserPresences[0].PlaceID)
	assert.Nil(t, resp.UserPresences[1].PlaceID)
}

func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErrs  []error
	}{
		{
			name:      "recovers after server errors",
			statuses:  []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusOK},
			wantCalls: 3,
		},
		{
			name:      "recovers after rate limit",
			statuses:  []int{http.StatusTooManyRequests, http.StatusOK},
			wantCalls: 2,
		},
		{
			name:      "gives up after three server errors",
			statuses:  []int{500, 500, 500, 500},
			wantCalls: 3,
			wantErrs:  []error{ErrUpstreamUnavailable},
		},
		{
			name:      "gives up after three rate limits",
			statuses:  []int{429, 429, 429, 429},
			wantCalls: 3,
			wantErrs:  []error{ErrUpstreamUnavailable, ErrRateLimited},
		},
		{
			name:      "does not retry bad request",
			statuses:  []int{http.StatusBadRequest, http.StatusOK},
			wantCalls: 1,
			wantErrs:  []error{ErrUpstreamRejected},
		},
		{
			name:      "does not retry not found",
			statuses:  []int{http.StatusNotFound},
			wantCalls: 1,
			wantErrs:  []error{ErrUpstreamRejected},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := calls.Add(1)
				status := tt.statuses[min(int(n), len(tt.statuses))-1]
				if status != http.StatusOK {
					w.WriteHeader(status)
					_, _ = io.WriteString(w, `{"errors":[{"code":0,"message":"nope"}]}`)

					return
				}

				_, _ = io.WriteString(w, userBody)
			}))
			defer srv.Close()

			user, err := newTestClient(t, srv.URL, nil).GetUser(t.Context(), 1)
			assert.Equal(t, tt.wantCalls, calls.Load())

			if len(tt.wantErrs) == 0 {
				require.NoError(t, err)
				assert.Equal(t, uint64(1), user.ID)

				return
			}

			for _, want := range tt.wantErrs {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestRetryAfterHonored(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}

		_, _ = io.WriteString(w, userBody)
	}))
	defer srv.Close()

	start := time.Now()
	_, err := newTestClient(t, srv.URL, nil).GetUser(t.Context(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTimeoutsExhaustRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(o *Options) {
		o.RequestTimeout = 50 * time.Millisecond
	})

	_, err := client.GetPresences(t.Context(), []uint64{1})
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, ErrUpstreamRejected)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBreakerOpensOnTransportFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)

		conn, _, err := w.(http.Hijacker).Hijack()
		if assert.NoError(t, err) {
			_ = conn.Close()
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(o *Options) {
		o.MaxAttempts = 1
		o.BreakerTimeout = time.Minute
	})

	for id := range uint64(3) {
		_, err := client.GetUser(t.Context(), id+1)
		require.ErrorIs(t, err, ErrUpstreamUnavailable)
	}

	_, err := client.GetUser(t.Context(), 4)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	for id := range uint64(5) {
		_, err := client.GetUser(t.Context(), id+1)
		require.ErrorIs(t, err, ErrUpstreamRejected)
	}

	assert.Equal(t, int32(5), calls.Load())
}

// stampingTransport records when each request leaves the client.
type stampingTransport struct {
	mu    sync.Mutex
	times []time.Time
	next  http.RoundTripper
}

func (s *stampingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.times = append(s.times, time.Now())
	s.mu.Unlock()

	return s.next.RoundTrip(req)
}

func TestRequestSpacing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, userBody)
	}))
	defer srv.Close()

	const spacing = 150 * time.Millisecond

	stamps := &stampingTransport{next: http.DefaultTransport}
	client := newTestClient(t, srv.URL, func(o *Options) {
		o.RequestSpacing = spacing
		o.HTTPClient = &http.Client{Transport: stamps, Timeout: time.Second}
	})

	// Distinct IDs so no request is collapsed.
	for id := range uint64(4) {
		_, err := client.GetUser(t.Context(), id+1)
		require.NoError(t, err)
	}

	require.Len(t, stamps.times, 4)

	for i := 1; i < len(stamps.times); i++ {
		gap := stamps.times[i].Sub(stamps.times[i-1])
		assert.GreaterOrEqual(t, gap, spacing-5*time.Millisecond, "gap %d", i)
	}
}

func TestDuplicateRequestsCollapse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = io.WriteString(w, `{"id":9,"name":"same","displayName":"Same","created":"2006-03-08T00:00:00Z"}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			user, err := client.GetUser(t.Context(), 9)
			if assert.NoError(t, err) {
				assert.Equal(t, "same", user.Name)
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCollapsedCallOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, userBody)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)

	shortErr := make(chan error, 1)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.GetUser(ctx, 1)
		shortErr <- err
	}()

	time.Sleep(10 * time.Millisecond)

	user, err := client.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), user.ID)

	err = <-shortErr
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}
