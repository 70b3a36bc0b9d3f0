package builder

import "github.com/0x6d61/curlwrap/internal/transport"

// header is one entry of a fixed header bundle.
type header struct {
	name  string
	value string
}

// defaultHeaders is the baseline header set, in the order it is applied.
// Pragma is deliberately empty: it suppresses the header.
var defaultHeaders = [...]header{
	{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	{"Accept-Charset", "windows-1251,utf-8;q=0.7,*;q=0.7"},
	{"Accept-Language", "ru,en-us;q=0.7,en;q=0.3"},
	{"Accept-Encoding", "gzip,deflate"},
	{"Connection", "keep-alive"},
	{"Cache-Control", "max-age=0"},
	{"Pragma", ""},
}

// optionValue is one entry of the fixed option bundle.
type optionValue struct {
	opt   transport.Option
	value any
}

var defaultOptions = [...]optionValue{
	{transport.OptReturnTransfer, true},
	{transport.OptEncoding, "gzip,deflate"},
	{transport.OptAutoReferer, true},
	{transport.OptConnectTimeout, 15},
	{transport.OptTimeout, 30},
}

// userAgents maps the registry tokens accepted by SetUserAgent to their
// canned header values.
var userAgents = map[string]string{
	"ie":       "Mozilla/5.0 (Windows NT 10.0; WOW64; Trident/7.0; rv:11.0) like Gecko",
	"explorer": "Mozilla/5.0 (Windows NT 10.0; WOW64; Trident/7.0; rv:11.0) like Gecko",
	"firefox":  "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
	"opera":    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 OPR/112.0.0.0",
	"chrome":   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"bot":      "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
}

// UserAgent returns the canned value for a registry token.
func UserAgent(token string) (string, bool) {
	ua, ok := userAgents[token]
	return ua, ok
}
