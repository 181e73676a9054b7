package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jaxron/axonet/middleware/circuitbreaker"
	"github.com/jaxron/axonet/middleware/retry"
	"github.com/jaxron/axonet/middleware/singleflight"
	"github.com/jaxron/axonet/pkg/client"
	roapi "github.com/jaxron/roapi.go/pkg/api"
	roapiErrors "github.com/jaxron/roapi.go/pkg/api/errors"
	"github.com/jaxron/roapi.go/pkg/api/resources/presence"
	"github.com/jaxron/roapi.go/pkg/api/resources/thumbnails"
	"github.com/jaxron/roapi.go/pkg/api/types"
	"github.com/robalyx/presencewatch/internal/roblox/api/interceptor/endpoint"
	"github.com/robalyx/presencewatch/internal/roblox/api/interceptor/pacer"
	"github.com/robalyx/presencewatch/internal/setup/config"
	"github.com/robalyx/presencewatch/internal/setup/telemetry/logger"
	"go.uber.org/zap"
	xsingleflight "golang.org/x/sync/singleflight"
)

var (
	// ErrUpstreamUnavailable means the API could not be reached or kept
	// failing with server errors until retries ran out.
	ErrUpstreamUnavailable = errors.New("roblox api unavailable")
	// ErrUpstreamRejected means the API refused the request with a client
	// error. Retrying will not help.
	ErrUpstreamRejected = errors.New("roblox api rejected request")
	// ErrRateLimited is joined with ErrUpstreamUnavailable when the last
	// attempt was answered with 429.
	ErrRateLimited = errors.New("roblox api rate limited")
)

// Default hosts of the endpoints used by the tracker.
const (
	UsersHost      = "users.roblox.com"
	ThumbnailsHost = "thumbnails.roblox.com"
	PresenceHost   = "presence.roblox.com"
)

// Options configures a Client.
type Options struct {
	UsersURL       string
	ThumbnailsURL  string
	PresenceURL    string
	RequestSpacing time.Duration
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	MaxAttempts    uint64
	RetryDelay     time.Duration
	MaxRetryDelay  time.Duration

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration

	// HTTPClient replaces the client built from the timeouts above.
	HTTPClient *http.Client
}

// OptionsFromConfig converts the millisecond-based config into Options.
func OptionsFromConfig(cfg *config.CommonConfig) Options {
	return Options{
		UsersURL:           cfg.Roblox.UsersURL,
		ThumbnailsURL:      cfg.Roblox.ThumbnailsURL,
		PresenceURL:        cfg.Roblox.PresenceURL,
		RequestSpacing:     time.Duration(cfg.Roblox.RequestSpacing) * time.Millisecond,
		RequestTimeout:     time.Duration(cfg.Roblox.RequestTimeout) * time.Millisecond,
		ConnectTimeout:     time.Duration(cfg.Roblox.ConnectTimeout) * time.Millisecond,
		MaxAttempts:        cfg.Retry.MaxAttempts,
		RetryDelay:         time.Duration(cfg.Retry.Delay) * time.Millisecond,
		MaxRetryDelay:      time.Duration(cfg.Retry.MaxDelay) * time.Millisecond,
		BreakerMaxRequests: cfg.CircuitBreaker.MaxRequests,
		BreakerInterval:    time.Duration(cfg.CircuitBreaker.Interval) * time.Millisecond,
		BreakerTimeout:     time.Duration(cfg.CircuitBreaker.Timeout) * time.Millisecond,
	}
}

// Client talks to the Roblox web APIs through roapi. Every attempt,
// retries included, goes through the pacer so requests are spaced at
// least RequestSpacing apart across all callers.
type Client struct {
	roAPI    *roapi.API
	endpoint *endpoint.Middleware
	group    xsingleflight.Group
	budget   time.Duration
	logger   *zap.Logger
}

// New creates a Client.
func New(opts Options, zapLogger *zap.Logger) (*Client, error) {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}

	router, err := endpoint.New(map[string]string{
		UsersHost:      opts.UsersURL,
		ThumbnailsHost: opts.ThumbnailsURL,
		PresenceHost:   opts.PresenceURL,
	}, opts.HTTPClient, opts.ConnectTimeout, opts.RequestTimeout)
	if err != nil {
		return nil, err
	}

	// Breaker sits inside retry so only transport failures trip it. A
	// stream of 404s from mistyped IDs must not stop presence polling.
	middlewares := []client.Option{
		client.WithMiddleware(retry.New(opts.MaxAttempts-1, opts.RetryDelay, opts.MaxRetryDelay)),
		client.WithMiddleware(singleflight.New()),
		client.WithMiddleware(circuitbreaker.New(opts.BreakerMaxRequests, opts.BreakerInterval, opts.BreakerTimeout)),
		client.WithMiddleware(pacer.New(opts.RequestSpacing)),
		client.WithMiddleware(router),
	}

	apiLogger := zapLogger.Named("roblox_api")

	roAPI := roapi.New(nil, append([]client.Option{
		client.WithMarshalFunc(sonic.Marshal),
		client.WithUnmarshalFunc(sonic.Unmarshal),
		client.WithLogger(logger.New(apiLogger)),
		client.WithTimeout(opts.RequestTimeout),
	}, middlewares...)...)

	attempts := time.Duration(opts.MaxAttempts)

	return &Client{
		roAPI:    roAPI,
		endpoint: router,
		budget:   attempts*(opts.RequestTimeout+opts.MaxRetryDelay) + pacer.MaxRetryAfter,
		logger:   apiLogger,
	}, nil
}

// GetUser fetches the public profile of a user.
func (c *Client) GetUser(ctx context.Context, userID uint64) (*types.UserByIDResponse, error) {
	return call(ctx, c, "user:"+strconv.FormatUint(userID, 10),
		func(ctx context.Context) (*types.UserByIDResponse, error) {
			return c.roAPI.Users().GetUserByID(ctx, userID)
		})
}

// GetAvatarThumbnail fetches the 420x420 avatar render of a user.
func (c *Client) GetAvatarThumbnail(ctx context.Context, userID uint64) (*types.BatchThumbnailsResponse, error) {
	id := strconv.FormatUint(userID, 10)

	params := thumbnails.NewBatchThumbnailsBuilder().
		AddRequest(types.ThumbnailRequest{
			Type:      types.AvatarType,
			Size:      types.Size420x420,
			Format:    types.PNG,
			RequestID: id + ":avatar",
			TargetID:  userID,
		}).
		Build()

	return call(ctx, c, "avatar:"+id,
		func(ctx context.Context) (*types.BatchThumbnailsResponse, error) {
			return c.roAPI.Thumbnails().GetBatchThumbnails(ctx, params)
		})
}

// GetPresences fetches the presence of up to 50 users in one request.
func (c *Client) GetPresences(ctx context.Context, userIDs []uint64) (*types.UserPresencesResponse, error) {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}

	params := presence.NewUserPresencesBuilder(userIDs...).Build()

	return call(ctx, c, "presence:"+strings.Join(ids, ","),
		func(ctx context.Context) (*types.UserPresencesResponse, error) {
			return c.roAPI.Presence().GetUserPresences(ctx, params)
		})
}

// Close releases idle connections.
func (c *Client) Close() {
	c.endpoint.Cleanup()
}

// call collapses concurrent calls sharing a key into one. The shared call
// runs detached from any single caller so one caller giving up does not
// fail the others; each caller still returns as soon as its own ctx ends.
func call[T any](ctx context.Context, c *Client, key string, fn func(context.Context) (*T, error)) (*T, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.budget)
		defer cancel()

		callCtx, outcome := pacer.Track(callCtx)

		result, err := fn(callCtx)
		if err != nil {
			return nil, c.classify(key, outcome, err)
		}

		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(*T), nil
	}
}

// classify wraps err in the sentinel matching what the last attempt saw.
func (c *Client) classify(key string, outcome *pacer.Outcome, err error) error {
	status := outcome.Status()

	switch {
	case errors.Is(err, roapiErrors.ErrInvalidRequest):
		return fmt.Errorf("%w: %w", ErrUpstreamRejected, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %w", ErrUpstreamUnavailable, ErrRateLimited, err)
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %w", ErrUpstreamRejected, status, err)
	default:
		c.logger.Warn("Roblox request failed",
			zap.String("call", key),
			zap.Int("attempts", outcome.Attempts()),
			zap.Int("status", status),
			zap.Error(err))

		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}
