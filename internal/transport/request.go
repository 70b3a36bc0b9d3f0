// Package transport provides the HTTP transfer engine consumed by the
// request builder. It performs one blocking exchange per Perform call and
// keeps a metadata snapshot of the most recent exchange.
package transport

import "context"

// Transport performs HTTP exchanges from a flattened option set.
type Transport interface {
	// Perform executes the transfer described by req and returns the
	// response body. Failures are reported as *Error.
	Perform(ctx context.Context, req *Request) ([]byte, error)

	// Info returns the metadata snapshot of the last completed exchange,
	// or nil if none has completed.
	Info() *TransferInfo

	// Close releases the transport. Cookie jars named by OptCookieJar are
	// written at this point.
	Close() error
}

// Factory acquires a fresh Transport.
type Factory func() (Transport, error)

// Request is a fully reconciled transfer description.
type Request struct {
	// Method is the active method marker.
	Method Method

	// Options holds every other setting, including OptURL.
	Options Options
}

// Clone returns a deep copy of the Request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	return &Request{
		Method:  r.Method,
		Options: r.Options.Clone(),
	}
}

// URL returns the OptURL value, or "" when unset.
func (r *Request) URL() string {
	s, _ := r.Options[OptURL].(string)
	return s
}
