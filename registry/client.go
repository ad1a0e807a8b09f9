// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package registry provides a client for the REST API of a flow registry.
// It covers the bucket, flow and flow version endpoints needed to copy
// flows between registries.
package registry

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/flowsync/flowsync/version"
)

const (
	// APIPath is the path of the registry REST API below the registry URL.
	APIPath = "/nifi-registry-api"

	// DefaultTimeout is used when the configuration does not set one.
	DefaultTimeout = 30 * time.Second
)

// Logger is the subset of a loggo.Logger the client uses.
type Logger interface {
	IsTraceEnabled() bool

	Errorf(string, ...interface{})
	Debugf(string, ...interface{})
	Tracef(string, ...interface{})
}

// Config holds the configuration for dialling a registry.
type Config struct {
	// URL is the base URL of the registry, without the API path, for
	// example http://localhost:18080.
	URL string

	// Token, when set, is sent as a bearer token with every request.
	Token string

	// RateLimit is the maximum number of requests per second. Zero means
	// no limit.
	RateLimit float64

	// RateBurst is the burst allowed over RateLimit. It defaults to 1.
	RateBurst int

	// Timeout bounds every request.
	Timeout time.Duration

	// Transport overrides the HTTP transport. It is used by tests.
	Transport Transport

	Logger Logger
}

// Validate returns an error if the config is not valid.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.NotValidf("empty registry URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.NotValidf("registry URL %q", c.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NotValidf("registry URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.NotValidf("registry URL %q without host", c.URL)
	}
	if c.RateLimit < 0 {
		return errors.NotValidf("negative rate limit")
	}
	if c.RateBurst < 0 {
		return errors.NotValidf("negative rate burst")
	}
	if c.Timeout < 0 {
		return errors.NotValidf("negative timeout")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Client talks to the REST API of a single registry.
type Client struct {
	url    string
	path   Path
	client RESTClient
	logger Logger
}

// NewClient creates a client for the registry described by config.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	registryURL := strings.TrimSuffix(config.URL, "/")
	base, err := url.Parse(registryURL + APIPath)
	if err != nil {
		return nil, errors.Trace(err)
	}

	transport := config.Transport
	if transport == nil {
		transport = newHTTPClient(config)
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst == 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	userAgent := "flowsync/" + version.Current.String()
	requester := NewAPIRequester(transport, limiter, userAgent, config.Logger)
	config.Logger.Debugf("registry client for %s", base)

	return &Client{
		url:    registryURL,
		path:   MakePath(base),
		client: NewHTTPRESTClient(requester, nil),
		logger: config.Logger,
	}, nil
}

// newHTTPClient creates the HTTP client used to reach the registry,
// adding bearer authentication when a token is configured.
func newHTTPClient(config Config) *http.Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	base := &http.Client{Timeout: timeout}
	if config.Token == "" {
		return base
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: config.Token,
	}))
	client.Timeout = timeout
	return client
}

// URL returns the base URL of the registry, without a trailing slash.
func (c *Client) URL() string {
	return c.url
}
