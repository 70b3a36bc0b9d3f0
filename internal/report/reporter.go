// Package report renders transfer results: the metadata snapshot of a
// transfer plus, for repeated transfers, latency statistics.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// Result is what a report describes.
type Result struct {
	Method    string
	Info      *transport.TransferInfo
	BodySize  int
	HistoryID string
	Latency   *LatencyStats // nil unless the transfer was repeated
}

// Reporter generates output in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "text", "json").
	Format() string

	// Generate writes the formatted result to w.
	Generate(ctx context.Context, result *Result, w io.Writer) error
}

// New creates a reporter by format name ("text" or "json").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}
