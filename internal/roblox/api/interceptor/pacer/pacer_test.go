package pacer_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/robalyx/presencewatch/internal/roblox/api/interceptor/pacer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(status int, header http.Header, body string) func(context.Context, *http.Client, *http.Request) (*http.Response, error) {
	return func(context.Context, *http.Client, *http.Request) (*http.Response, error) {
		if header == nil {
			header = http.Header{}
		}

		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://users.roblox.com/v1/users/1", nil)
	require.NoError(t, err)

	return req
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "Empty", value: "", want: 0},
		{name: "Seconds", value: "3", want: 3 * time.Second},
		{name: "Negative seconds", value: "-1", want: 0},
		{name: "Garbage", value: "soon", want: 0},
		{name: "Future date", value: now.Add(10 * time.Second).Format(http.TimeFormat), want: 10 * time.Second},
		{name: "Past date", value: now.Add(-10 * time.Second).Format(http.TimeFormat), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, pacer.ParseRetryAfter(tt.value, now))
		})
	}
}

func TestOutcomeRecordsLastStatus(t *testing.T) {
	t.Parallel()

	m := pacer.New(0)
	ctx, outcome := pacer.Track(t.Context())

	_, err := m.Process(ctx, nil, newRequest(t), respond(http.StatusBadGateway, nil, "oops"))
	require.NoError(t, err)

	resp, err := m.Process(ctx, nil, newRequest(t), respond(http.StatusOK, nil, "{}"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, outcome.Status())
	assert.Equal(t, 2, outcome.Attempts())

	_, err = m.Process(ctx, nil, newRequest(t), func(context.Context, *http.Client, *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})
	require.Error(t, err)
	assert.Zero(t, outcome.Status())
	assert.Equal(t, 3, outcome.Attempts())
}

func TestErrorBodyStaysReadable(t *testing.T) {
	t.Parallel()

	m := pacer.New(0)

	resp, err := m.Process(t.Context(), nil, newRequest(t),
		respond(http.StatusNotFound, nil, `{"errors":[{"code":3}]}`))
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[{"code":3}]}`, string(body))
}

func TestRetryAfterPausesLaterRequests(t *testing.T) {
	t.Parallel()

	m := pacer.New(0)

	header := http.Header{}
	header.Set("Retry-After", "1")

	_, err := m.Process(t.Context(), nil, newRequest(t), respond(http.StatusTooManyRequests, header, ""))
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Process(t.Context(), nil, newRequest(t), respond(http.StatusOK, nil, "{}"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestPauseHonorsContext(t *testing.T) {
	t.Parallel()

	m := pacer.New(0)

	header := http.Header{}
	header.Set("Retry-After", "30")

	_, err := m.Process(t.Context(), nil, newRequest(t), respond(http.StatusTooManyRequests, header, ""))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Process(ctx, nil, newRequest(t), respond(http.StatusOK, nil, "{}"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSpacing(t *testing.T) {
	t.Parallel()

	const spacing = 50 * time.Millisecond

	m := pacer.New(spacing)

	start := time.Now()
	for range 3 {
		_, err := m.Process(t.Context(), nil, newRequest(t), respond(http.StatusOK, nil, "{}"))
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 2*spacing-5*time.Millisecond)
}
