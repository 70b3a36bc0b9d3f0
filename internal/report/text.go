package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

const (
	doubleLine = "\u2550" // ═
	singleLine = "\u2500" // ─
	lineWidth  = 50
)

// TextReporter outputs terminal text.
type TextReporter struct {
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

func (r *TextReporter) paint(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if r.NoColor {
		c.DisableColor()
	}
	return c.SprintFunc()
}

// Generate writes the formatted transfer report to w.
func (r *TextReporter) Generate(ctx context.Context, result *Result, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.Info == nil {
		return fmt.Errorf("report: no transfer info")
	}
	info := result.Info

	bold := r.paint(color.Bold)
	b := &strings.Builder{}

	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, bold("curlwrap - Transfer Report"))
	fmt.Fprintln(b, doubleBar)

	fmt.Fprintf(b, "URL:          %s\n", info.URL)
	fmt.Fprintf(b, "Method:       %s\n", result.Method)
	fmt.Fprintf(b, "Status:       %s\n", r.status(info.HTTPCode))
	if info.ContentType != "" {
		fmt.Fprintf(b, "Content-Type: %s\n", info.ContentType)
	}
	if info.RedirectCount > 0 {
		fmt.Fprintf(b, "Redirects:    %d (%.6fs)\n", info.RedirectCount, info.RedirectTime)
	}
	if info.Filetime >= 0 {
		fmt.Fprintf(b, "Filetime:     %s\n", time.Unix(info.Filetime, 0).UTC().Format(time.RFC1123))
	}

	fmt.Fprintln(b, singleBar)
	fmt.Fprintln(b, "Timing (seconds):")
	fmt.Fprintf(b, "  namelookup     %.6f\n", info.NameLookupTime)
	fmt.Fprintf(b, "  connect        %.6f\n", info.ConnectTime)
	fmt.Fprintf(b, "  pretransfer    %.6f\n", info.PretransferTime)
	fmt.Fprintf(b, "  starttransfer  %.6f\n", info.StartTransferTime)
	fmt.Fprintf(b, "  total          %s\n", bold(fmt.Sprintf("%.6f", info.TotalTime)))

	fmt.Fprintln(b, singleBar)
	fmt.Fprintln(b, "Size (bytes):")
	fmt.Fprintf(b, "  request        %d\n", info.RequestSize)
	fmt.Fprintf(b, "  header         %d\n", info.HeaderSize)
	fmt.Fprintf(b, "  upload         %d\n", info.SizeUpload)
	fmt.Fprintf(b, "  download       %d\n", info.SizeDownload)
	fmt.Fprintf(b, "  body           %d\n", result.BodySize)
	fmt.Fprintf(b, "Speed: %.0f B/s down, %.0f B/s up\n", info.SpeedDownload, info.SpeedUpload)

	if s := result.Latency; s != nil {
		fmt.Fprintln(b, singleBar)
		fmt.Fprintf(b, "Latency over %d transfer(s), %d error(s):\n", s.Count, s.Errors)
		fmt.Fprintf(b, "  min %s  mean %s  max %s\n", s.Min, s.Mean, s.Max)
		fmt.Fprintf(b, "  p50 %s  p90 %s  p99 %s\n", s.P50, s.P90, s.P99)
	}

	fmt.Fprintln(b, doubleBar)
	if result.HistoryID != "" {
		fmt.Fprintf(b, "Saved to history as %s\n", result.HistoryID)
		fmt.Fprintln(b, doubleBar)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// status renders the HTTP code colored by class.
func (r *TextReporter) status(code int) string {
	s := fmt.Sprintf("%d", code)
	switch {
	case code >= 200 && code < 300:
		return r.paint(color.FgGreen)(s)
	case code >= 300 && code < 400:
		return r.paint(color.FgYellow)(s)
	case code >= 400:
		return r.paint(color.FgRed)(s)
	default:
		return s
	}
}
