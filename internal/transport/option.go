package transport

import (
	"fmt"
	"sort"
	"strings"
)

// Option identifies a transport setting. The set mirrors the handful of
// settings the request builder reconciles before every transfer.
type Option int

const (
	OptURL Option = iota + 1
	OptUserAgent
	OptReferer
	OptTimeout
	OptConnectTimeout
	OptReturnTransfer
	OptHeader
	OptEncoding
	OptAutoReferer
	OptFollowLocation
	OptMaxRedirs
	OptHTTPHeader
	OptCookie
	OptCookieFile
	OptCookieJar
	OptPostFields
	OptSSLVerifyPeer
	OptProxy
	OptFiletime
	OptVerbose
)

var optionNames = map[Option]string{
	OptURL:            "url",
	OptUserAgent:      "user_agent",
	OptReferer:        "referer",
	OptTimeout:        "timeout",
	OptConnectTimeout: "connect_timeout",
	OptReturnTransfer: "return_transfer",
	OptHeader:         "header",
	OptEncoding:       "encoding",
	OptAutoReferer:    "auto_referer",
	OptFollowLocation: "follow_location",
	OptMaxRedirs:      "max_redirs",
	OptHTTPHeader:     "http_header",
	OptCookie:         "cookie",
	OptCookieFile:     "cookie_file",
	OptCookieJar:      "cookie_jar",
	OptPostFields:     "post_fields",
	OptSSLVerifyPeer:  "ssl_verify_peer",
	OptProxy:          "proxy",
	OptFiletime:       "filetime",
	OptVerbose:        "verbose",
}

var optionsByName = func() map[string]Option {
	m := make(map[string]Option, len(optionNames))
	for opt, name := range optionNames {
		m[name] = opt
	}
	return m
}()

// String returns the option's snake_case name.
func (o Option) String() string {
	if name, ok := optionNames[o]; ok {
		return name
	}
	return fmt.Sprintf("option(%d)", int(o))
}

// ParseOption resolves an option by name. Dashes and case are ignored,
// so "Connect-Timeout" and "connect_timeout" are equivalent.
func ParseOption(name string) (Option, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if opt, ok := optionsByName[key]; ok {
		return opt, nil
	}
	return 0, fmt.Errorf("unknown transport option %q", name)
}

// OptionNames returns every known option name in sorted order.
func OptionNames() []string {
	names := make([]string, 0, len(optionNames))
	for _, name := range optionNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options is the flattened option set handed to a Transport.
type Options map[Option]any

// Clone returns a shallow copy of o. List values are copied so the clone
// can be mutated independently.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	c := make(Options, len(o))
	for k, v := range o {
		switch vv := v.(type) {
		case []string:
			c[k] = append([]string(nil), vv...)
		case []Field:
			c[k] = append([]Field(nil), vv...)
		default:
			c[k] = v
		}
	}
	return c
}

// Field is one body payload field. Order is preserved on the wire.
type Field struct {
	Name  string
	Value string
}
