package builder

import (
	"net/url"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// parseQuery splits a raw query string into decoded pairs in order of
// appearance. A leading '?' is ignored, empty segments are skipped and a
// segment without '=' yields an empty value. Segments that fail to
// decode are kept verbatim.
func parseQuery(raw string) []transport.Field {
	raw = strings.TrimPrefix(raw, "?")
	var pairs []transport.Field
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		name, value, _ := strings.Cut(seg, "=")
		if name == "" {
			continue
		}
		pairs = append(pairs, transport.Field{Name: unescape(name), Value: unescape(value)})
	}
	return pairs
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// escape percent-encodes s for a query component, spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// encodeParams joins the params as name=value pairs in insertion order.
func encodeParams(params *orderedmap.OrderedMap[string, any]) string {
	var b strings.Builder
	for p := params.Oldest(); p != nil; p = p.Next() {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.Key))
		b.WriteByte('=')
		b.WriteString(escape(stringify(p.Value)))
	}
	return b.String()
}

// appendQuery appends an encoded query to rawURL. An existing query is
// kept and extended with '&'; keys already present are not replaced.
// Every other component is reassembled unchanged.
func appendQuery(rawURL, query string) (string, error) {
	if query == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &transport.Error{Code: transport.CodeURLMalformat, Message: err.Error()}
	}
	if u.RawQuery == "" {
		u.RawQuery = query
	} else {
		u.RawQuery += "&" + query
	}
	return u.String(), nil
}
