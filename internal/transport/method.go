package transport

import "strings"

// MethodKind identifies which request-method marker is active.
type MethodKind int

const (
	MethodGet MethodKind = iota
	MethodHead
	MethodPost
	MethodCustom
)

// Method is the request-method marker for a single transfer. Exactly one
// kind is active at a time; Custom carries the verb (PUT, DELETE, ...).
type Method struct {
	Kind MethodKind
	Verb string
}

// Predefined markers.
var (
	Get  = Method{Kind: MethodGet}
	Head = Method{Kind: MethodHead}
	Post = Method{Kind: MethodPost}
)

// Custom returns a custom-method marker carrying verb.
func Custom(verb string) Method {
	return Method{Kind: MethodCustom, Verb: verb}
}

// ParseMethod maps an HTTP verb to its marker. GET, HEAD and POST match
// case-insensitively and an empty verb means GET. Any other verb is kept
// exactly as given, since methods are case-sensitive on the wire.
func ParseMethod(verb string) Method {
	switch strings.ToUpper(verb) {
	case "", "GET":
		return Get
	case "HEAD":
		return Head
	case "POST":
		return Post
	default:
		return Custom(verb)
	}
}

// String returns the HTTP verb sent on the wire.
func (m Method) String() string {
	switch m.Kind {
	case MethodHead:
		return "HEAD"
	case MethodPost:
		return "POST"
	case MethodCustom:
		return m.Verb
	default:
		return "GET"
	}
}

// IsGet reports whether m is the GET marker.
func (m Method) IsGet() bool { return m.Kind == MethodGet }
