package endpoint_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/robalyx/presencewatch/internal/roblox/api/interceptor/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesBaseURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		base    string
		wantErr bool
	}{
		{name: "Empty keeps default", base: ""},
		{name: "Default host", base: "https://users.roblox.com"},
		{name: "Mirror with path", base: "http://127.0.0.1:9000/users/"},
		{name: "Missing scheme", base: "users.example", wantErr: true},
		{name: "Missing host", base: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := endpoint.New(map[string]string{"users.roblox.com": tt.base}, nil, time.Second, time.Second)
			if tt.wantErr {
				require.ErrorIs(t, err, endpoint.ErrInvalidBaseURL)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestProcessRoutesAndRewinds(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}

	m, err := endpoint.New(map[string]string{
		"presence.roblox.com": "http://127.0.0.1:9000/mirror/",
	}, custom, time.Second, time.Second)
	require.NoError(t, err)

	body := []byte(`{"userIds":[1]}`)
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost,
		"https://presence.roblox.com/v1/presence/users", bytes.NewReader(body))
	require.NoError(t, err)

	var seen []string

	next := func(_ context.Context, c *http.Client, r *http.Request) (*http.Response, error) {
		assert.Same(t, custom, c)
		assert.Equal(t, "http://127.0.0.1:9000/mirror/v1/presence/users", r.URL.String())

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		seen = append(seen, string(data))

		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	}

	// The second pass sees a routed URL and must leave it alone.
	for range 2 {
		_, err = m.Process(t.Context(), nil, req, next)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{string(body), string(body)}, seen)
}

func TestProcessLeavesOtherHosts(t *testing.T) {
	t.Parallel()

	m, err := endpoint.New(map[string]string{"users.roblox.com": "http://127.0.0.1:9000"}, nil, time.Second, time.Second)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://games.roblox.com/v1/games", nil)
	require.NoError(t, err)

	_, err = m.Process(t.Context(), nil, req, func(_ context.Context, _ *http.Client, r *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://games.roblox.com/v1/games", r.URL.String())
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	require.NoError(t, err)
}
