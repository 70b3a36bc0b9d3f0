package builder

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// reconcile merges the pending params, headers, cookie file and cookies
// into a copy of the option map. The steps run in a fixed order and the
// persistent option map is never modified, so nothing computed here
// leaks into the next request.
func (b *RequestBuilder) reconcile(method transport.Method) (transport.Options, error) {
	opts := b.options.Clone()
	if opts == nil {
		opts = make(transport.Options)
	}

	// a. params: query string for GET, body payload otherwise
	if b.params.Len() > 0 {
		if method.IsGet() {
			raw, _ := opts[transport.OptURL].(string)
			u, err := appendQuery(raw, encodeParams(b.params))
			if err != nil {
				return nil, err
			}
			opts[transport.OptURL] = u
		} else {
			opts[transport.OptPostFields] = compileFields(b.params)
		}
	}

	// b. headers
	if b.headers.Len() > 0 {
		opts[transport.OptHTTPHeader] = compileHeaders(b.headers)
	}

	// c. cookie file, read and written at the same path
	if b.cookieFile != "" {
		opts[transport.OptCookieFile] = b.cookieFile
		opts[transport.OptCookieJar] = b.cookieFile
	}

	// d. cookies
	if b.cookies.Len() > 0 {
		opts[transport.OptCookie] = compileCookies(b.cookies)
	}

	return opts, nil
}

// compileHeaders renders one "Name: value" line per header.
func compileHeaders(headers *orderedmap.OrderedMap[string, string]) []string {
	lines := make([]string, 0, headers.Len())
	for p := headers.Oldest(); p != nil; p = p.Next() {
		lines = append(lines, p.Key+": "+p.Value)
	}
	return lines
}

// compileCookies renders "name=value; " segments, trailing separator
// included.
func compileCookies(cookies *orderedmap.OrderedMap[string, any]) string {
	var b strings.Builder
	for p := cookies.Oldest(); p != nil; p = p.Next() {
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(stringify(p.Value))
		b.WriteString("; ")
	}
	return b.String()
}

func compileFields(params *orderedmap.OrderedMap[string, any]) []transport.Field {
	fields := make([]transport.Field, 0, params.Len())
	for p := params.Oldest(); p != nil; p = p.Next() {
		fields = append(fields, transport.Field{Name: p.Key, Value: stringify(p.Value)})
	}
	return fields
}
