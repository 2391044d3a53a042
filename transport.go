package session

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// InvalidationEvent is emitted once per response that rejects the credentials the
// request was sent with.
type InvalidationEvent struct {
	Status     int
	Code       string
	Message    string
	Token      string
	RequestURL string
}

// Transport is the request authorization pipeline. It attaches the current access token
// to every outgoing request and reports authorization failures to an
// InvalidationHandler. It never retries and never navigates.
type Transport struct {
	base    http.RoundTripper
	tokens  TokenSource
	handler InvalidationHandler
	logger  Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithBaseTransport sets the RoundTripper requests are delegated to.
func WithBaseTransport(rt http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if rt != nil {
			t.base = rt
		}
	}
}

// WithTransportLogger overrides the transport logger.
func WithTransportLogger(logger Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates the pipeline. tokens and handler may be nil, in which case
// requests go out unauthenticated and failures are only logged.
func NewTransport(tokens TokenSource, handler InvalidationHandler, opts ...TransportOption) *Transport {
	t := &Transport{
		base:    http.DefaultTransport,
		tokens:  tokens,
		handler: handler,
		logger:  defLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	token := bearerToken(out.Header.Get(HeaderAuthorization))
	if token == "" && t.tokens != nil && !withoutCredentials(out.Context()) {
		if token = t.tokens.AccessToken(); token != "" {
			out.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	body, err := readAndRestore(resp)
	if err != nil {
		t.logger.Warn("failed to read authorization failure body", "url", out.URL.String(), "error", err)
	}

	parsed := parseErrorBody(body)
	if !forcesLogout(resp.StatusCode, parsed.Code) {
		return resp, nil
	}

	event := InvalidationEvent{
		Status:     resp.StatusCode,
		Code:       parsed.Code,
		Message:    parsed.Message,
		Token:      token,
		RequestURL: out.URL.String(),
	}

	t.logger.Debug("authorization failure",
		"status", event.Status,
		"code", event.Code,
		"url", event.RequestURL,
		"request_id", out.Header.Get(HeaderRequestID),
	)

	if t.handler != nil {
		t.handler.Invalidate(event)
	}

	return resp, nil
}

// readAndRestore buffers the response body and puts an equivalent reader back so the
// caller still sees the body unmodified.
func readAndRestore(resp *http.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{
		Reader: io.MultiReader(bytes.NewReader(body), rest),
		Closer: rest,
	}
	return body, err
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
