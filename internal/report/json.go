package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

// jsonOutput is the top-level JSON structure.
type jsonOutput struct {
	SchemaVersion string                  `json:"schema_version"`
	Tool          string                  `json:"tool"`
	Method        string                  `json:"method"`
	Info          *transport.TransferInfo `json:"info"`
	BodySize      int                     `json:"body_size"`
	HistoryID     string                  `json:"history_id,omitempty"`
	Latency       *jsonLatency            `json:"latency,omitempty"`
}

// jsonLatency holds latency statistics in seconds.
type jsonLatency struct {
	Count  int64   `json:"count"`
	Errors int     `json:"errors"`
	Min    float64 `json:"min"`
	Mean   float64 `json:"mean"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
}

// Generate writes the JSON report to w.
func (r *JSONReporter) Generate(ctx context.Context, result *Result, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.Info == nil {
		return fmt.Errorf("report: no transfer info")
	}

	output := jsonOutput{
		SchemaVersion: "1.0",
		Tool:          "curlwrap",
		Method:        result.Method,
		Info:          result.Info,
		BodySize:      result.BodySize,
		HistoryID:     result.HistoryID,
	}
	if s := result.Latency; s != nil {
		output.Latency = &jsonLatency{
			Count:  s.Count,
			Errors: s.Errors,
			Min:    s.Min.Seconds(),
			Mean:   s.Mean.Seconds(),
			P50:    s.P50.Seconds(),
			P90:    s.P90.Seconds(),
			P99:    s.P99.Seconds(),
			Max:    s.Max.Seconds(),
		}
	}

	enc := json.NewEncoder(w)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(output)
}
