// Package builder provides RequestBuilder, a stateful HTTP client that
// accumulates options, headers, cookies and request parameters across
// requests and reconciles them into a transport option set before every
// transfer.
//
// A RequestBuilder is not safe for concurrent use.
package builder

import (
	"context"
	"errors"
	"log/slog"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// RequestBuilder owns one transport handle plus the accumulated request
// state.
type RequestBuilder struct {
	factory transport.Factory
	tr      transport.Transport
	logger  *slog.Logger

	options    transport.Options
	headers    *orderedmap.OrderedMap[string, string]
	cookies    *orderedmap.OrderedMap[string, any]
	params     *orderedmap.OrderedMap[string, any]
	cookieFile string
	method     transport.Method

	response    []byte
	hasResponse bool
	info        *transport.TransferInfo
}

// Option configures a RequestBuilder.
type Option func(*config)

type config struct {
	factory    transport.Factory
	logger     *slog.Logger
	defaults   bool
	defaultsUA string
	tcfg       transport.Config
}

// WithTransportFactory sets the factory used to acquire transport handles.
// The default is a net/http backed transport.
func WithTransportFactory(f transport.Factory) Option {
	return func(c *config) { c.factory = f }
}

// WithDefaults seeds the default headers and options on construction,
// followed by SetUserAgent(userAgent) when userAgent is not empty.
func WithDefaults(userAgent string) Option {
	return func(c *config) {
		c.defaults = true
		c.defaultsUA = userAgent
	}
}

// WithLogger sets the logger for reconciliation traces. The default
// discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxRPS limits the default transport to rps transfers per second.
// It has no effect together with WithTransportFactory.
func WithMaxRPS(rps float64) Option {
	return func(c *config) { c.tcfg.MaxRPS = rps }
}

// New creates a RequestBuilder and acquires its first transport handle.
func New(opts ...Option) (*RequestBuilder, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.factory == nil {
		tc := cfg.tcfg
		tc.Logger = cfg.logger
		cfg.factory = transport.NewFactory(tc)
	}

	b := &RequestBuilder{
		factory: cfg.factory,
		logger:  cfg.logger,
		options: make(transport.Options),
		headers: orderedmap.New[string, string](),
		cookies: orderedmap.New[string, any](),
		params:  orderedmap.New[string, any](),
		method:  transport.Get,
	}
	if err := b.acquire(); err != nil {
		return nil, err
	}
	if cfg.defaults {
		b.SetDefaults(cfg.defaultsUA)
	}
	return b, nil
}

func (b *RequestBuilder) acquire() error {
	tr, err := b.factory()
	if err != nil {
		return newTransferError(err)
	}
	b.tr = tr
	return nil
}

// release closes the current handle, if any. Cookie jars are written at
// this point, so a failure is reported as a transfer error.
func (b *RequestBuilder) release() error {
	if b.tr == nil {
		return nil
	}
	err := b.tr.Close()
	b.tr = nil
	if err != nil {
		return newTransferError(err)
	}
	return nil
}

// Close releases the transport handle. The builder cannot perform
// requests afterwards.
func (b *RequestBuilder) Close() error {
	return b.release()
}

// Reset closes and reacquires the transport handle. Options, headers,
// cookies, params, the cookie file and the last response are kept; only
// the transfer info snapshot is dropped.
func (b *RequestBuilder) Reset() error {
	closeErr := b.release()
	b.info = nil
	if err := b.acquire(); err != nil {
		return errors.Join(closeErr, err)
	}
	return closeErr
}

// ResetAll clears every map and the cookie file path, then calls Reset.
func (b *RequestBuilder) ResetAll() error {
	b.ClearOptions()
	b.ClearHeaders()
	b.ClearCookies()
	b.ClearRequestParams()
	b.UnsetCookieFile()
	b.method = transport.Get
	return b.Reset()
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// Request performs a transfer of the given method to url. params, when
// not nil, is merged into the request params first (see
// MergeRequestParams). An empty method means GET.
//
// The returned body is also kept for Response. On failure the
// accumulated state is left as is and a *TransferError is returned.
func (b *RequestBuilder) Request(ctx context.Context, url, method string, params any) ([]byte, error) {
	if b.tr == nil {
		return nil, &TransferError{
			Code:    int(transport.CodeBadFunctionArgument),
			Message: "request builder is closed",
		}
	}

	b.options[transport.OptURL] = url
	b.method = transport.ParseMethod(method)

	if err := b.MergeRequestParams(params); err != nil {
		return nil, err
	}

	opts, err := b.reconcile(b.method)
	if err != nil {
		return nil, newTransferError(err)
	}

	b.logger.Debug("request reconciled",
		"method", b.method.String(),
		"url", opts[transport.OptURL],
		"headers", b.headers.Len(),
		"cookies", b.cookies.Len(),
		"params", b.params.Len(),
	)

	b.response = nil
	b.hasResponse = false
	b.info = nil

	body, err := b.tr.Perform(ctx, &transport.Request{Method: b.method, Options: opts})
	if err != nil {
		return nil, newTransferError(err)
	}

	b.response = body
	b.hasResponse = true
	b.info = b.tr.Info().Clone()
	return body, nil
}

// Get performs a GET request.
func (b *RequestBuilder) Get(ctx context.Context, url string, params any) ([]byte, error) {
	return b.Request(ctx, url, "GET", params)
}

// Post performs a POST request.
func (b *RequestBuilder) Post(ctx context.Context, url string, params any) ([]byte, error) {
	return b.Request(ctx, url, "POST", params)
}

// Put performs a PUT request.
func (b *RequestBuilder) Put(ctx context.Context, url string, params any) ([]byte, error) {
	return b.Request(ctx, url, "PUT", params)
}

// Head performs a HEAD request. The body holds the response header block.
func (b *RequestBuilder) Head(ctx context.Context, url string, params any) ([]byte, error) {
	return b.Request(ctx, url, "HEAD", params)
}

// Delete performs a DELETE request.
func (b *RequestBuilder) Delete(ctx context.Context, url string, params any) ([]byte, error) {
	return b.Request(ctx, url, "DELETE", params)
}

// Patch performs a PATCH request.
func (b *RequestBuilder) Patch(ctx context.Context, url string, params any) ([]byte, error) {
	return b.Request(ctx, url, "PATCH", params)
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Response returns the body of the last successful request. ok is false
// when no request has completed yet or the last one failed.
func (b *RequestBuilder) Response() (body []byte, ok bool) {
	return b.response, b.hasResponse
}

// TransferInfo returns the metadata snapshot of the last successful
// request, or a *NotFoundError if there is none.
func (b *RequestBuilder) TransferInfo() (*transport.TransferInfo, error) {
	if b.info == nil {
		return nil, &NotFoundError{}
	}
	return b.info.Clone(), nil
}

// TransferInfoValue returns a single metadata value by key, e.g.
// "http_code".
func (b *RequestBuilder) TransferInfoValue(key string) (any, error) {
	if b.info == nil {
		return nil, &NotFoundError{}
	}
	v, ok := b.info.Lookup(key)
	if !ok {
		return nil, &NotFoundError{Key: key}
	}
	return v, nil
}

// Options returns a copy of the option map.
func (b *RequestBuilder) Options() transport.Options {
	return b.options.Clone()
}

// Headers returns a copy of the header map.
func (b *RequestBuilder) Headers() map[string]string { return toMap(b.headers) }

// Cookies returns a copy of the cookie map.
func (b *RequestBuilder) Cookies() map[string]any { return toMap(b.cookies) }

// RequestParams returns a copy of the pending request params.
func (b *RequestBuilder) RequestParams() map[string]any { return toMap(b.params) }

// CookieFile returns the cookie file path, "" when unset.
func (b *RequestBuilder) CookieFile() string { return b.cookieFile }

// Method returns the method marker of the last request.
func (b *RequestBuilder) Method() transport.Method { return b.method }
