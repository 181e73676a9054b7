package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
)

// ErrInvalidBaseURL is returned for a base URL without scheme or host.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// Middleware sends requests for the default Roblox hosts to configured
// base URLs, such as a mirror or a local test server, over its own client.
type Middleware struct {
	routes     map[string]*url.URL
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a Middleware. Routes maps a default host such as
// "users.roblox.com" to the base URL that should serve it. A nil
// httpClient gets a client with the given timeouts.
func New(routes map[string]string, httpClient *http.Client, connectTimeout, requestTimeout time.Duration) (*Middleware, error) {
	parsed := make(map[string]*url.URL, len(routes))

	for host, base := range routes {
		if base == "" {
			continue
		}

		u, err := url.Parse(strings.TrimRight(base, "/"))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, base)
		}

		if u.Scheme == "https" && u.Host == host && u.Path == "" {
			continue
		}

		parsed[host] = u
	}

	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = connectTimeout

		httpClient = &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		}
	}

	return &Middleware{
		routes:     parsed,
		httpClient: httpClient,
		logger:     &logger.NoOpLogger{},
	}, nil
}

// Process rewrites the request target when its host has a route. The body
// is rewound first since retried attempts reuse the same request.
func (m *Middleware) Process(
	ctx context.Context, _ *http.Client, req *http.Request, next middleware.NextFunc,
) (*http.Response, error) {
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}

		req.Body = body
	}

	if base, ok := m.routes[req.URL.Host]; ok {
		original := req.URL.Host

		target := *req.URL
		target.Scheme = base.Scheme
		target.Host = base.Host
		target.Path = base.Path + req.URL.Path

		req.URL = &target
		req.Host = ""

		m.logger.WithFields(
			logger.String("from", original),
			logger.String("to", base.Host),
		).Debug("Routed request")
	}

	return next(ctx, m.httpClient, req)
}

// SetLogger sets the logger for the middleware.
func (m *Middleware) SetLogger(l logger.Logger) {
	m.logger = l
}

// Cleanup closes idle connections.
func (m *Middleware) Cleanup() {
	m.httpClient.CloseIdleConnections()
}
