package pacer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"golang.org/x/time/rate"
)

const (
	// MaxRetryAfter caps how long a server-provided Retry-After may pause requests.
	MaxRetryAfter = time.Minute
	// maxErrorBody caps how much of an error response body is kept.
	maxErrorBody = 64 << 10
)

type outcomeKey struct{}

// Outcome records what the last attempt of a call saw.
type Outcome struct {
	mu       sync.Mutex
	status   int
	attempts int
}

// Track returns a context whose attempts are recorded into the returned Outcome.
func Track(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeKey{}, o), o
}

// Status is the HTTP status of the last attempt, or 0 when it got no response.
func (o *Outcome) Status() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.status
}

// Attempts is how many requests were sent.
func (o *Outcome) Attempts() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.attempts
}

func (o *Outcome) record(status int) {
	if o == nil {
		return
	}

	o.mu.Lock()
	o.status = status
	o.attempts++
	o.mu.Unlock()
}

// Middleware spaces requests sent through the client and pauses all of them
// when the server answers 429 with a Retry-After.
type Middleware struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	resumeAt time.Time
	now      func() time.Time
	logger   logger.Logger
}

// New creates a Middleware that lets one request through per spacing.
// A zero spacing disables spacing but Retry-After is still honored.
func New(spacing time.Duration) *Middleware {
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}

	return &Middleware{
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
		logger:  &logger.NoOpLogger{},
	}
}

// Process waits for a slot, sends the request and inspects the response.
func (m *Middleware) Process(
	ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	outcome, _ := ctx.Value(outcomeKey{}).(*Outcome)

	resp, err := next(ctx, httpClient, req)
	if err != nil {
		outcome.record(0)
		return resp, err
	}

	outcome.record(resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests {
		if wait := ParseRetryAfter(resp.Header.Get("Retry-After"), m.now()); wait > 0 {
			m.pause(min(wait, MaxRetryAfter))

			m.logger.WithFields(
				logger.String("url", req.URL.String()),
				logger.Duration("retry_after", wait),
			).Warn("Rate limited, pausing requests")
		}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		bufferBody(resp)
	}

	return resp, nil
}

// SetLogger sets the logger for the middleware.
func (m *Middleware) SetLogger(l logger.Logger) {
	m.logger = l
}

// wait blocks until a pause has elapsed and the limiter grants a slot.
func (m *Middleware) wait(ctx context.Context) error {
	m.mu.Lock()
	resumeAt := m.resumeAt
	m.mu.Unlock()

	if delay := resumeAt.Sub(m.now()); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return m.limiter.Wait(ctx)
}

func (m *Middleware) pause(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if until := m.now().Add(d); until.After(m.resumeAt) {
		m.resumeAt = until
	}
}

// bufferBody replaces an error body with an in-memory copy so the
// connection can be reused even when retries discard the response.
func bufferBody(resp *http.Response) {
	if resp.Body == nil {
		return
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()

	resp.Body = io.NopCloser(bytes.NewReader(data))
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}

		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}

	return 0
}
