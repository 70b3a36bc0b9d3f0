// Package history persists completed transfers so they can be listed and
// reviewed later.
package history

import (
	"context"
	"time"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// Record is one completed transfer.
type Record struct {
	ID         string                  `json:"id"`
	Method     string                  `json:"method"`
	URL        string                  `json:"url"`
	StatusCode int                     `json:"status_code"`
	BodySize   int64                   `json:"body_size"`
	Info       *transport.TransferInfo `json:"info"`
	CreatedAt  time.Time               `json:"created_at"`
}

// NewRecord builds a Record from a transfer's method and metadata. The
// URL is the effective URL reported in info.
func NewRecord(method transport.Method, info *transport.TransferInfo, bodySize int) *Record {
	r := &Record{Method: method.String(), BodySize: int64(bodySize), Info: info.Clone()}
	if info != nil {
		r.URL = info.URL
		r.StatusCode = info.HTTPCode
	}
	return r
}

// Store persists and retrieves transfer records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Close() error
}
