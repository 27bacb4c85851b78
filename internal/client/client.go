// Package client talks to the admin REST API on behalf of one console
// session at a time. The session's credential store travels in the request
// context; clients themselves are long-lived and shared.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"admin-console/internal/obs"
	xerrors "admin-console/internal/pkg/errors"
	"admin-console/internal/pkg/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	// DefaultCSRFHeader carries the CSRF cookie value on mutating calls.
	DefaultCSRFHeader = "X-CSRF-Token"
	requestIDHeader   = "X-Request-ID"
	maxErrorBody      = 64 << 10
)

// CredentialStore is the session state a client reads and writes.
// *session.Handle implements it.
type CredentialStore interface {
	Current(ctx context.Context) (*session.Credential, error)
	ReplaceToken(ctx context.Context, token string) error
	MergeCookies(ctx context.Context, cookies []*http.Cookie) error
	MarkExpired(ctx context.Context) error
	Clear(ctx context.Context) error
}

var _ CredentialStore = (*session.Handle)(nil)

type credentialsKey struct{}

// WithCredentials attaches the credential store of the calling session.
func WithCredentials(ctx context.Context, store CredentialStore) context.Context {
	return context.WithValue(ctx, credentialsKey{}, store)
}

// CredentialsFrom returns the store attached by WithCredentials.
func CredentialsFrom(ctx context.Context) (CredentialStore, bool) {
	store, ok := ctx.Value(credentialsKey{}).(CredentialStore)
	return store, ok && store != nil
}

// Client is a JSON client for one area of the admin API.
type Client struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	recovery   *Recovery
	logger     *zap.Logger
	metrics    *obs.Metrics
	csrfHeader string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithCSRFHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.csrfHeader = name
		}
	}
}

// WithRecovery enables refresh-and-replay on 401. Only clients of
// authenticated endpoints carry it.
func WithRecovery(r *Recovery) Option {
	return func(c *Client) { c.recovery = r }
}

// New creates a client. name labels logs and metrics.
func New(name, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host required", baseURL)
	}
	c := &Client{
		name:       name,
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
		csrfHeader: DefaultCSRFHeader,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("client", name))
	return c, nil
}

// Name returns the label given at construction.
func (c *Client) Name() string { return c.name }

type requestOptions struct {
	withoutBearer bool
}

// RequestOption tweaks a single call.
type RequestOption func(*requestOptions)

// WithoutBearer omits the Authorization header. The refresh endpoint
// authenticates with the session cookie, not the possibly expired token.
func WithoutBearer() RequestOption {
	return func(o *requestOptions) { o.withoutBearer = true }
}

// Do sends a JSON request and decodes a JSON response into out (if
// non-nil). Non-2xx responses become *xerrors.APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	send := func(ctx context.Context) error {
		return c.send(ctx, method, path, payload, out, ro)
	}
	err := send(ctx)
	if err == nil || c.recovery == nil {
		return err
	}
	return c.recovery.Recover(ctx, c.name, err, send)
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any, ro requestOptions) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := ulid.Make().String()
	req.Header.Set(requestIDHeader, requestID)

	store, hasStore := CredentialsFrom(ctx)
	if hasStore {
		cred, err := store.Current(ctx)
		switch {
		case err == nil:
			c.attach(req, cred, ro)
		case !errors.Is(err, xerrors.ErrNoSession):
			c.logger.Warn("failed to load credential", zap.Error(err))
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(c.name, method, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(c.name, method, resp.StatusCode, time.Since(start))

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)

	if hasStore {
		if err := store.MergeCookies(ctx, resp.Cookies()); err != nil {
			c.logger.Warn("failed to record backend cookies", zap.Error(err))
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %w", method, path, decodeError(resp))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: %w: empty body", method, path, xerrors.ErrInvalidResponse)
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, xerrors.ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) attach(req *http.Request, cred *session.Credential, ro requestOptions) {
	if cred.Token != "" && !ro.withoutBearer {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}
	names := make([]string, 0, len(cred.Cookies))
	for name := range cred.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: cred.Cookies[name]})
	}
	if cred.CSRFToken != "" && isMutating(req.Method) {
		req.Header.Set(c.csrfHeader, cred.CSRFToken)
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	return xerrors.FromStatus(resp.StatusCode, body.Message)
}
