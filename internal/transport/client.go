package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/moul/http2curl"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxRedirs is the redirect limit used when OptFollowLocation is
	// set without OptMaxRedirs.
	DefaultMaxRedirs = 30

	// defaultEncodings is what an empty OptEncoding expands to.
	defaultEncodings = "gzip, deflate"
)

// Config holds handle-level settings that are not part of the per-transfer
// option set.
type Config struct {
	// MaxRPS is the maximum transfers per second (0 = unlimited).
	MaxRPS float64

	// Logger receives verbose transfer traces. nil uses slog.Default().
	Logger *slog.Logger

	// Output receives the body when OptReturnTransfer is false.
	// nil uses os.Stdout.
	Output io.Writer
}

// HTTPTransport is the Transport implementation backed by net/http. One
// HTTPTransport is one handle: connections, the cookie engine and the
// metadata snapshot live as long as the handle.
type HTTPTransport struct {
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter

	base    *http.Transport
	baseKey string

	jar        *CookieJar
	jarLoaded  map[string]bool
	jarOutPath string

	info   *TransferInfo
	closed bool
}

// Compile-time check that HTTPTransport implements Transport.
var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new handle.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	t := &HTTPTransport{
		cfg:       cfg,
		logger:    cfg.Logger,
		jarLoaded: make(map[string]bool),
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.setRateLimit(cfg.MaxRPS)
	return t
}

// NewFactory returns a Factory producing HTTPTransports with cfg.
func NewFactory(cfg Config) Factory {
	return func() (Transport, error) {
		return NewHTTPTransport(cfg), nil
	}
}

// setRateLimit sets the maximum number of transfers per second.
// A value of 0 or less disables rate limiting.
func (t *HTTPTransport) setRateLimit(rps float64) {
	if rps <= 0 {
		t.limiter = nil
		return
	}
	t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// Info returns the snapshot of the last completed transfer.
func (t *HTTPTransport) Info() *TransferInfo {
	return t.info.Clone()
}

// Close writes the cookie jar, if one was requested, and drops idle
// connections. Calling Close more than once is a no-op.
func (t *HTTPTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if t.base != nil {
		t.base.CloseIdleConnections()
	}
	if t.jar != nil && t.jarOutPath != "" {
		if err := t.jar.Save(t.jarOutPath); err != nil {
			return &Error{Code: CodeWriteError, Message: err.Error()}
		}
	}
	return nil
}

// settings is the validated, typed view of an Options set.
type settings struct {
	url            *url.URL
	userAgent      *string
	referer        *string
	timeout        time.Duration
	connectTimeout time.Duration
	returnTransfer bool
	header         bool
	encoding       *string
	autoReferer    bool
	follow         bool
	maxRedirs      int
	httpHeader     []string
	cookie         string
	cookieFile     *string
	cookieJar      string
	verifyPeer     bool
	proxy          string
	filetime       bool
	verbose        bool
}

func parseSettings(req *Request) (*settings, error) {
	o := req.Options
	s := &settings{returnTransfer: true, verifyPeer: true, maxRedirs: -1}

	raw, err := optString(o, OptURL)
	if err != nil {
		return nil, err
	}
	if raw == nil || *raw == "" {
		return nil, newError(CodeURLMalformat, "no URL set")
	}
	u, perr := url.Parse(*raw)
	if perr != nil {
		return nil, newError(CodeURLMalformat, "%v", perr)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, newError(CodeUnsupportedProtocol, "protocol %q not supported", u.Scheme)
	}
	if u.Host == "" {
		return nil, newError(CodeURLMalformat, "no host part in URL %q", *raw)
	}
	s.url = u

	if s.userAgent, err = optString(o, OptUserAgent); err != nil {
		return nil, err
	}
	if s.referer, err = optString(o, OptReferer); err != nil {
		return nil, err
	}
	if s.timeout, err = optSeconds(o, OptTimeout); err != nil {
		return nil, err
	}
	if s.connectTimeout, err = optSeconds(o, OptConnectTimeout); err != nil {
		return nil, err
	}
	if s.encoding, err = optString(o, OptEncoding); err != nil {
		return nil, err
	}
	if s.httpHeader, err = optStrings(o, OptHTTPHeader); err != nil {
		return nil, err
	}
	if s.cookieFile, err = optString(o, OptCookieFile); err != nil {
		return nil, err
	}

	var str *string
	if str, err = optString(o, OptCookie); err != nil {
		return nil, err
	} else if str != nil {
		s.cookie = *str
	}
	if str, err = optString(o, OptCookieJar); err != nil {
		return nil, err
	} else if str != nil {
		s.cookieJar = *str
	}
	if str, err = optString(o, OptProxy); err != nil {
		return nil, err
	} else if str != nil {
		s.proxy = *str
	}

	bools := []struct {
		opt Option
		dst *bool
	}{
		{OptReturnTransfer, &s.returnTransfer},
		{OptHeader, &s.header},
		{OptAutoReferer, &s.autoReferer},
		{OptFollowLocation, &s.follow},
		{OptSSLVerifyPeer, &s.verifyPeer},
		{OptFiletime, &s.filetime},
		{OptVerbose, &s.verbose},
	}
	for _, b := range bools {
		v, err := optBool(o, b.opt)
		if err != nil {
			return nil, err
		}
		if v != nil {
			*b.dst = *v
		}
	}

	if v, ok := o[OptMaxRedirs]; ok {
		n, ok := toInt(v)
		if !ok {
			return nil, badArgument(OptMaxRedirs, v)
		}
		s.maxRedirs = n
	}
	if s.maxRedirs < 0 {
		s.maxRedirs = DefaultMaxRedirs
	}

	return s, nil
}

// Perform executes one transfer.
func (t *HTTPTransport) Perform(ctx context.Context, req *Request) ([]byte, error) {
	if t.closed {
		return nil, newError(CodeBadFunctionArgument, "transport handle is closed")
	}

	s, err := parseSettings(req)
	if err != nil {
		return nil, err
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, newError(CodeOperationTimedOut, "rate limiter: %v", err)
		}
	}

	if err := t.prepareCookieEngine(s); err != nil {
		return nil, err
	}

	base, err := t.transportFor(s)
	if err != nil {
		return nil, err
	}

	body, contentType, uploadLen, err := buildBody(req.Method, req.Options[OptPostFields])
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), s.url.String(), body)
	if err != nil {
		return nil, newError(CodeURLMalformat, "%v", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	applyHeaders(httpReq, s)

	if s.verbose {
		if cmd, err := http2curl.GetCurlCommand(httpReq); err == nil {
			t.logger.Info("transfer", "method", httpReq.Method, "url", httpReq.URL.String(), "curl", cmd.String())
		}
	}

	tr := newTracer()
	httpReq = httpReq.WithContext(tr.withTrace(httpReq.Context()))

	client := &http.Client{
		Transport:     base,
		Timeout:       s.timeout,
		CheckRedirect: tr.redirectPolicy(s),
	}
	if t.jar != nil {
		client.Jar = t.jar
	}

	tr.start = time.Now()
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, classify(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classify(err)
	}
	total := time.Since(tr.start)

	decoded := raw
	if s.encoding != nil {
		decoded, err = decodeBody(httpResp.Header.Get("Content-Encoding"), raw)
		if err != nil {
			return nil, newError(CodeBadContentEncoding, "%v", err)
		}
	}

	headerBlock := formatHeaderBlock(httpResp)

	if s.verbose {
		t.logger.Info("response", "status", httpResp.Status, "bytes", len(raw), "duration", total)
	}

	t.info = tr.snapshot(httpResp, s, total, int64(len(headerBlock)), int64(len(raw)), uploadLen)

	out := decoded
	if s.header || req.Method.Kind == MethodHead {
		out = append([]byte(headerBlock), decoded...)
	}

	if !s.returnTransfer {
		w := t.cfg.Output
		if w == nil {
			w = os.Stdout
		}
		if _, err := w.Write(out); err != nil {
			return nil, newError(CodeWriteError, "%v", err)
		}
		return nil, nil
	}
	return out, nil
}

// prepareCookieEngine enables the cookie jar when a cookie file or jar
// path is configured. Each cookie file is read once per handle.
func (t *HTTPTransport) prepareCookieEngine(s *settings) error {
	if s.cookieFile == nil && s.cookieJar == "" {
		return nil
	}
	if t.jar == nil {
		jar, err := NewCookieJar()
		if err != nil {
			return newError(CodeBadFunctionArgument, "%v", err)
		}
		t.jar = jar
	}
	if s.cookieFile != nil && *s.cookieFile != "" && !t.jarLoaded[*s.cookieFile] {
		if err := t.jar.Load(*s.cookieFile); err != nil {
			return newError(CodeBadFunctionArgument, "%v", err)
		}
		t.jarLoaded[*s.cookieFile] = true
	}
	if s.cookieJar != "" {
		t.jarOutPath = s.cookieJar
	}
	return nil
}

// transportFor returns the handle's *http.Transport, rebuilding it when
// the connection-level settings change.
func (t *HTTPTransport) transportFor(s *settings) (*http.Transport, error) {
	key := fmt.Sprintf("%s|%s|%t", s.connectTimeout, s.proxy, s.verifyPeer)
	if t.base != nil && t.baseKey == key {
		return t.base, nil
	}

	dialer := &net.Dialer{Timeout: s.connectTimeout, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: s.connectTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !s.verifyPeer,
		},
		// Content decoding follows OptEncoding rather than net/http's
		// implicit gzip handling.
		DisableCompression: true,
		ForceAttemptHTTP2:  true,
		Proxy:              http.ProxyFromEnvironment,
	}

	if s.proxy != "" {
		proxyURL, err := url.Parse(s.proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, newError(CodeCouldntResolveProxy, "invalid proxy URL %q", s.proxy)
		}
		base.Proxy = http.ProxyURL(proxyURL)
	}

	if t.base != nil {
		t.base.CloseIdleConnections()
	}
	t.base = base
	t.baseKey = key
	return base, nil
}

// applyHeaders sets option-derived headers first, then the explicit
// header list. An empty value in the list removes the header, including
// the ones net/http would otherwise add on its own.
func applyHeaders(req *http.Request, s *settings) {
	if s.userAgent != nil {
		req.Header.Set("User-Agent", *s.userAgent)
	} else {
		req.Header.Set("User-Agent", "")
	}
	if s.referer != nil && *s.referer != "" {
		req.Header.Set("Referer", *s.referer)
	}
	if s.encoding != nil {
		enc := *s.encoding
		if enc == "" {
			enc = defaultEncodings
		}
		req.Header.Set("Accept-Encoding", enc)
	}
	if cookie := strings.TrimRight(s.cookie, "; "); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	for _, line := range s.httpHeader {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}
		if strings.EqualFold(name, "Host") {
			if value != "" {
				req.Host = value
			}
			continue
		}
		if value == "" {
			// net/http only skips User-Agent when the key is present
			// with an empty value.
			if strings.EqualFold(name, "User-Agent") {
				req.Header.Set("User-Agent", "")
			} else {
				req.Header.Del(name)
			}
			continue
		}
		req.Header.Set(name, value)
	}
}

// buildBody encodes OptPostFields. Ordered fields become multipart form
// data; a raw string or url.Values is sent url-encoded. GET and HEAD never
// carry a body.
func buildBody(m Method, v any) (io.Reader, string, int64, error) {
	if v == nil || m.Kind == MethodGet || m.Kind == MethodHead {
		return nil, "", -1, nil
	}

	switch fields := v.(type) {
	case string:
		return strings.NewReader(fields), "application/x-www-form-urlencoded", int64(len(fields)), nil
	case url.Values:
		enc := fields.Encode()
		return strings.NewReader(enc), "application/x-www-form-urlencoded", int64(len(enc)), nil
	case []byte:
		return bytes.NewReader(fields), "application/x-www-form-urlencoded", int64(len(fields)), nil
	case []Field:
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for _, f := range fields {
			if err := w.WriteField(f.Name, f.Value); err != nil {
				return nil, "", 0, newError(CodeBadFunctionArgument, "post field %q: %v", f.Name, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", 0, newError(CodeBadFunctionArgument, "post fields: %v", err)
		}
		return buf, w.FormDataContentType(), int64(buf.Len()), nil
	default:
		return nil, "", 0, badArgument(OptPostFields, v)
	}
}

// decodeBody reverses a gzip or deflate Content-Encoding. Unknown or
// absent encodings pass through untouched.
func decodeBody(encoding string, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		// Servers send either zlib-wrapped or raw deflate streams.
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	default:
		return raw, nil
	}
}

// formatHeaderBlock renders the status line and headers of resp the way
// they appear on the wire, terminated by an empty line.
func formatHeaderBlock(resp *http.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\r\n", resp.Proto, resp.Status)
	_ = resp.Header.Write(&b)
	b.WriteString("\r\n")
	return b.String()
}

// requestSize approximates the bytes sent for the request line and
// headers of req.
func requestSize(req *http.Request) int64 {
	if req == nil {
		return 0
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\nHost: %s\r\n", req.Method, req.URL.RequestURI(), req.Host)
	_ = req.Header.Write(&b)
	b.WriteString("\r\n")
	return int64(b.Len())
}
