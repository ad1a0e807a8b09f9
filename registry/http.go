// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/time/rate"
	"gopkg.in/httprequest.v1"
)

// MIME represents a MIME type for identifying requests and response bodies.
type MIME = string

const (
	// JSON represents the MIME type for JSON request and response types.
	JSON MIME = "application/json"
)

// maxErrorBody caps how much of an error response is quoted back.
const maxErrorBody = 4096

// Transport defines a type for making the actual request.
type Transport interface {
	// Do performs the *http.Request and returns a *http.Response or an error
	// if it fails to construct the transport.
	Do(*http.Request) (*http.Response, error)
}

// APIRequester creates a wrapper around the transport to allow for better
// error handling.
type APIRequester struct {
	transport Transport
	limiter   *rate.Limiter
	userAgent string
	logger    Logger
}

// NewAPIRequester creates a new requester for making requests to the
// registry. A nil limiter means requests are never throttled.
func NewAPIRequester(transport Transport, limiter *rate.Limiter, userAgent string, logger Logger) *APIRequester {
	return &APIRequester{
		transport: transport,
		limiter:   limiter,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Do performs the *http.Request and returns a *http.Response or an error.
// Responses outside of the 2xx range are turned into errors that can be
// checked with errors.IsNotFound, errors.IsAlreadyExists and friends.
func (t *APIRequester) Do(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, errors.Annotate(err, "waiting for request slot")
		}
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	if t.logger.IsTraceEnabled() {
		if data, err := httputil.DumpRequest(req, true); err == nil {
			t.logger.Tracef("%s request %s", req.Method, data)
		} else {
			t.logger.Tracef("%s request DumpRequest error %s", req.Method, err.Error())
		}
	}

	resp, err := t.transport.Do(req)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if t.logger.IsTraceEnabled() {
		if data, err := httputil.DumpResponse(resp, true); err == nil {
			t.logger.Tracef("%s response %s", req.Method, data)
		} else {
			t.logger.Tracef("%s response DumpResponse error %s", req.Method, err.Error())
		}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode <= http.StatusNoContent {
		return resp, nil
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return nil, statusError(req, resp)
}

// statusError converts an unsuccessful response into an error. The
// registry answers failures with a plain text body explaining the cause,
// which is quoted in the message.
func statusError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	what := req.Method + " " + req.URL.Path
	if msg := strings.TrimSpace(string(body)); msg != "" {
		what += ": " + msg
	}

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return errors.NewNotFound(nil, what)
	case code == http.StatusConflict:
		return errors.NewAlreadyExists(nil, what)
	case code == http.StatusUnauthorized:
		return errors.NewUnauthorized(nil, what)
	case code == http.StatusForbidden:
		return errors.NewForbidden(nil, what)
	case code == http.StatusBadRequest:
		return errors.NewBadRequest(nil, what)
	case code >= http.StatusInternalServerError:
		return errors.Errorf("server error %d %s", code, what)
	default:
		return errors.Errorf("unexpected status %d %s", code, what)
	}
}

// RESTResponse abstracts away the underlying response from the implementation.
type RESTResponse struct {
	StatusCode int
}

// RESTClient defines a type for making requests to a server.
type RESTClient interface {
	// Get performs GET requests to a given Path.
	Get(context.Context, Path, interface{}) (RESTResponse, error)
	// Post performs POST requests to a given Path.
	Post(context.Context, Path, interface{}, interface{}) (RESTResponse, error)
}

// HTTPRESTClient represents a RESTClient that expects to interact with a
// HTTP transport.
type HTTPRESTClient struct {
	transport Transport
	headers   http.Header
}

// NewHTTPRESTClient creates a new HTTPRESTClient
func NewHTTPRESTClient(transport Transport, headers http.Header) *HTTPRESTClient {
	return &HTTPRESTClient{
		transport: transport,
		headers:   headers,
	}
}

// Get makes a GET request to the given path in the registry, parsing the
// result as JSON into the given result value, which should be a pointer to
// the expected data.
func (c *HTTPRESTClient) Get(ctx context.Context, path Path, result interface{}) (RESTResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", path.String(), nil)
	if err != nil {
		return RESTResponse{}, errors.Annotate(err, "can not make new request")
	}

	headers := make(http.Header)
	headers.Set("Accept", JSON)
	req.Header = c.composeHeaders(headers)

	resp, err := c.transport.Do(req)
	if err != nil {
		return RESTResponse{}, errors.Trace(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := httprequest.UnmarshalJSONResponse(resp, result); err != nil {
		return RESTResponse{}, errors.Annotate(err, "registry client get")
	}

	return RESTResponse{
		StatusCode: resp.StatusCode,
	}, nil
}

// Post makes a POST request to the given path in the registry, sending
// body encoded as JSON and parsing the result as JSON into the given
// result value.
func (c *HTTPRESTClient) Post(ctx context.Context, path Path, body, result interface{}) (RESTResponse, error) {
	buffer := new(bytes.Buffer)
	if err := json.NewEncoder(buffer).Encode(body); err != nil {
		return RESTResponse{}, errors.Trace(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", path.String(), buffer)
	if err != nil {
		return RESTResponse{}, errors.Annotate(err, "can not make new request")
	}

	headers := make(http.Header)
	headers.Set("Accept", JSON)
	headers.Set("Content-Type", JSON)
	req.Header = c.composeHeaders(headers)

	resp, err := c.transport.Do(req)
	if err != nil {
		return RESTResponse{}, errors.Trace(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := httprequest.UnmarshalJSONResponse(resp, result); err != nil {
		return RESTResponse{}, errors.Annotate(err, "registry client post")
	}
	return RESTResponse{
		StatusCode: resp.StatusCode,
	}, nil
}

// composeHeaders creates a new set of headers from scratch.
func (c *HTTPRESTClient) composeHeaders(headers http.Header) http.Header {
	result := make(http.Header)
	for k, vs := range headers {
		for _, v := range vs {
			result.Add(k, v)
		}
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			result.Add(k, v)
		}
	}
	return result
}
