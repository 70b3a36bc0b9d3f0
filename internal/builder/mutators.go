package builder

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// AddOption sets one transport option.
func (b *RequestBuilder) AddOption(opt transport.Option, value any) {
	b.options[opt] = value
}

// AddOptions merges opts into the option map. Existing keys are
// overwritten.
func (b *RequestBuilder) AddOptions(opts transport.Options) {
	for k, v := range opts {
		b.options[k] = v
	}
}

// RemoveOption deletes an option. Missing keys are ignored.
func (b *RequestBuilder) RemoveOption(opt transport.Option) {
	delete(b.options, opt)
}

// ClearOptions empties the option map.
func (b *RequestBuilder) ClearOptions() {
	b.options = make(transport.Options)
}

// --------------------------------------------------------------------------
// Headers
// --------------------------------------------------------------------------

// AddHeader sets one header. An empty value is kept: the transport sends
// no such header at all.
func (b *RequestBuilder) AddHeader(name, value string) {
	b.headers.Set(name, value)
}

// AddHeaders merges headers. New names are appended in sorted order.
func (b *RequestBuilder) AddHeaders(headers map[string]string) {
	mergeSorted(b.headers, headers)
}

// RemoveHeader deletes a header. Missing names are ignored.
func (b *RequestBuilder) RemoveHeader(name string) {
	b.headers.Delete(name)
}

// ClearHeaders empties the header map.
func (b *RequestBuilder) ClearHeaders() {
	b.headers = orderedmap.New[string, string]()
}

// --------------------------------------------------------------------------
// Cookies
// --------------------------------------------------------------------------

// AddCookie sets one cookie. The value is stringified when the cookie
// header is compiled.
func (b *RequestBuilder) AddCookie(name string, value any) {
	b.cookies.Set(name, value)
}

// AddCookies merges cookies. New names are appended in sorted order.
func (b *RequestBuilder) AddCookies(cookies map[string]any) {
	mergeSorted(b.cookies, cookies)
}

// RemoveCookie deletes a cookie. Missing names are ignored.
func (b *RequestBuilder) RemoveCookie(name string) {
	b.cookies.Delete(name)
}

// ClearCookies empties the cookie map.
func (b *RequestBuilder) ClearCookies() {
	b.cookies = orderedmap.New[string, any]()
}

// --------------------------------------------------------------------------
// Request params
// --------------------------------------------------------------------------

// AddRequestParam sets one request param.
func (b *RequestBuilder) AddRequestParam(name string, value any) {
	b.params.Set(name, value)
}

// AddRequestParams merges params. New names are appended in sorted order.
func (b *RequestBuilder) AddRequestParams(params map[string]any) {
	mergeSorted(b.params, params)
}

// AddRequestQuery parses a raw query string such as "a=1&b=2" and merges
// the decoded pairs. For a repeated name the last value wins.
func (b *RequestBuilder) AddRequestQuery(raw string) {
	for _, f := range parseQuery(raw) {
		b.params.Set(f.Name, f.Value)
	}
}

// MergeRequestParams merges params according to its shape:
//
//	string                        parsed as a raw query string
//	map[string]any                merged like AddRequestParams
//	map[string]string             merged like AddRequestParams
//	url.Values                    last value of every name, sorted by name
//	[]transport.Field             merged in slice order
//	*orderedmap.OrderedMap        merged in insertion order
//
// nil is a no-op. Any other type is rejected with a *TransferError
// carrying the bad-argument code.
func (b *RequestBuilder) MergeRequestParams(params any) error {
	switch p := params.(type) {
	case nil:
	case string:
		b.AddRequestQuery(p)
	case map[string]any:
		b.AddRequestParams(p)
	case map[string]string:
		m := make(map[string]any, len(p))
		for k, v := range p {
			m[k] = v
		}
		b.AddRequestParams(m)
	case url.Values:
		names := make([]string, 0, len(p))
		for name := range p {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if vs := p[name]; len(vs) > 0 {
				b.params.Set(name, vs[len(vs)-1])
			}
		}
	case []transport.Field:
		for _, f := range p {
			b.params.Set(f.Name, f.Value)
		}
	case *orderedmap.OrderedMap[string, any]:
		for pair := p.Oldest(); pair != nil; pair = pair.Next() {
			b.params.Set(pair.Key, pair.Value)
		}
	case *orderedmap.OrderedMap[string, string]:
		for pair := p.Oldest(); pair != nil; pair = pair.Next() {
			b.params.Set(pair.Key, pair.Value)
		}
	default:
		return &TransferError{
			Code:    int(transport.CodeBadFunctionArgument),
			Message: fmt.Sprintf("unsupported request params type %T", params),
		}
	}
	return nil
}

// RemoveRequestParam deletes a param. Missing names are ignored.
func (b *RequestBuilder) RemoveRequestParam(name string) {
	b.params.Delete(name)
}

// ClearRequestParams empties the pending params.
func (b *RequestBuilder) ClearRequestParams() {
	b.params = orderedmap.New[string, any]()
}

// --------------------------------------------------------------------------
// Cookie file
// --------------------------------------------------------------------------

// SetCookieFile stores path as the cookie jar file. The file must exist
// and be writable.
func (b *RequestBuilder) SetCookieFile(path string) error {
	if err := checkWritable(path); err != nil {
		return err
	}
	b.cookieFile = path
	return nil
}

// ClearCookieFile truncates the stored cookie file. The path stays set.
func (b *RequestBuilder) ClearCookieFile() error {
	if b.cookieFile == "" {
		return &ConfigurationError{Err: errors.New("cookie file is not set")}
	}
	f, err := os.OpenFile(b.cookieFile, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return &ConfigurationError{Path: b.cookieFile, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ConfigurationError{Path: b.cookieFile, Err: err}
	}
	return nil
}

// UnsetCookieFile forgets the cookie file path. The file is not touched.
func (b *RequestBuilder) UnsetCookieFile() {
	b.cookieFile = ""
}

func checkWritable(path string) error {
	if path == "" {
		return &ConfigurationError{Err: errors.New("empty cookie file path")}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	if fi.IsDir() {
		return &ConfigurationError{Path: path, Err: errors.New("is a directory")}
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	return nil
}

// --------------------------------------------------------------------------
// Shortcuts
// --------------------------------------------------------------------------

// SetUserAgent sets the user agent option. Registry tokens (ie, explorer,
// firefox, opera, chrome, bot) are replaced by their canned value; any
// other name is used literally.
func (b *RequestBuilder) SetUserAgent(name string) {
	if ua, ok := UserAgent(name); ok {
		name = ua
	}
	b.AddOption(transport.OptUserAgent, name)
}

// SetTimeout sets the overall transfer timeout in seconds.
func (b *RequestBuilder) SetTimeout(seconds int) {
	b.AddOption(transport.OptTimeout, seconds)
}

// SetConnectTimeout sets the connect timeout in seconds.
func (b *RequestBuilder) SetConnectTimeout(seconds int) {
	b.AddOption(transport.OptConnectTimeout, seconds)
}

// SetReferer sets the Referer sent with every request.
func (b *RequestBuilder) SetReferer(referer string) {
	b.AddOption(transport.OptReferer, referer)
}

// SetDefaultHeaders merges the baseline browser-like header set.
func (b *RequestBuilder) SetDefaultHeaders() {
	for _, h := range defaultHeaders {
		b.headers.Set(h.name, h.value)
	}
}

// SetDefaultOptions merges the baseline option set.
func (b *RequestBuilder) SetDefaultOptions() {
	for _, o := range defaultOptions {
		b.options[o.opt] = o.value
	}
}

// SetDefaults merges the default headers and options. A non-empty
// userAgent is then applied with SetUserAgent.
func (b *RequestBuilder) SetDefaults(userAgent ...string) {
	b.SetDefaultHeaders()
	b.SetDefaultOptions()
	if len(userAgent) > 0 && userAgent[0] != "" {
		b.SetUserAgent(userAgent[0])
	}
}
