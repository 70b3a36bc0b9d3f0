package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/0x6d61/curlwrap/internal/builder"
	"github.com/0x6d61/curlwrap/internal/config"
	"github.com/0x6d61/curlwrap/internal/history"
	"github.com/0x6d61/curlwrap/internal/report"
	"github.com/0x6d61/curlwrap/internal/transport"
)

var requestCmd = &cobra.Command{
	Use:   "request URL",
	Short: "Send an HTTP request through the request builder",
	Long: `Request sends one transfer (or --repeat N transfers) to URL.

Headers, cookies and parameters given on the command line are added to the
builder on top of the browser-like defaults and an optional profile. For GET
the parameters are appended to the URL query, for every other method they
are sent as a multipart form.`,
	Args: cobra.ExactArgs(1),
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)

	f := requestCmd.Flags()

	// Request flags
	f.StringP("method", "X", "", "HTTP method (default GET, or POST with --data)")
	f.StringP("data", "d", "", "Request parameters as a query string (e.g., id=1&name=test)")
	f.StringArrayP("header", "H", nil, "Extra header (repeatable, e.g., -H 'X-Custom: value')")
	f.StringP("cookie", "b", "", "Cookie string (e.g., PHPSESSID=abc123; lang=en)")
	f.StringP("cookie-jar", "c", "", "Cookie file read before and written after the transfer")
	f.StringP("user-agent", "A", "", "User-Agent string or one of: ie, firefox, opera, chrome, bot")
	f.StringP("referer", "e", "", "Referer header")
	f.BoolP("head", "I", false, "Send a HEAD request and print the response headers")

	// Connection flags
	f.Int("timeout", 0, "Transfer timeout in seconds (0 keeps the default)")
	f.Int("connect-timeout", 0, "Connect timeout in seconds (0 keeps the default)")
	f.BoolP("location", "L", false, "Follow redirects")
	f.BoolP("insecure", "k", false, "Skip TLS certificate verification")
	f.String("proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	f.Float64("max-rps", 0, "Maximum transfers per second (0 = unlimited)")

	// Builder flags
	f.Bool("no-defaults", false, "Do not seed the browser-like default headers and options")
	f.String("profile", "", "YAML profile applied before the command-line flags")

	// Output flags
	f.StringP("output", "o", "", "Write the body to a file instead of stdout")
	f.StringP("write-out", "w", "", "Print one transfer info value (e.g., http_code) after the body")
	f.StringP("info", "i", "", "Print a transfer report (text, json) after the body")
	f.Bool("no-color", false, "Disable colors in the text report")
	f.String("select", "", "Print only the value at a JSON path of the body (e.g., user.name)")
	f.Int("repeat", 1, "Send the request N times and summarise the latency")
	f.String("history", "", "SQLite database to record the transfer in")
}

// runRequest wires the request pipeline:
// flags → builder (defaults, profile, overrides) → transfer(s) → history → output.
func runRequest(cmd *cobra.Command, args []string) (err error) {
	// ------------------------------------------------------------------ //
	// 1. Read flags
	// ------------------------------------------------------------------ //
	targetURL := args[0]
	flags := cmd.Flags()

	method, _ := flags.GetString("method")
	data, _ := flags.GetString("data")
	rawHeaders, _ := flags.GetStringArray("header")
	cookieStr, _ := flags.GetString("cookie")
	cookieJar, _ := flags.GetString("cookie-jar")
	userAgent, _ := flags.GetString("user-agent")
	referer, _ := flags.GetString("referer")
	head, _ := flags.GetBool("head")
	timeout, _ := flags.GetInt("timeout")
	connectTimeout, _ := flags.GetInt("connect-timeout")
	follow, _ := flags.GetBool("location")
	insecure, _ := flags.GetBool("insecure")
	proxyURL, _ := flags.GetString("proxy")
	maxRPS, _ := flags.GetFloat64("max-rps")
	noDefaults, _ := flags.GetBool("no-defaults")
	profilePath, _ := flags.GetString("profile")
	outputPath, _ := flags.GetString("output")
	writeOut, _ := flags.GetString("write-out")
	infoFormat, _ := flags.GetString("info")
	noColor, _ := flags.GetBool("no-color")
	selectPath, _ := flags.GetString("select")
	repeat, _ := flags.GetInt("repeat")
	historyPath, _ := flags.GetString("history")
	verbose, _ := flags.GetCount("verbose")

	if repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", repeat)
	}
	method = resolveMethod(method, data, head)

	var reporter report.Reporter
	if infoFormat != "" {
		if reporter, err = report.New(infoFormat); err != nil {
			return err
		}
		if tr, ok := reporter.(*report.TextReporter); ok {
			tr.NoColor = noColor
		}
	}

	logger := newLogger(cmd.ErrOrStderr(), verbose)

	// ------------------------------------------------------------------ //
	// 2. Builder
	// ------------------------------------------------------------------ //
	opts := []builder.Option{
		builder.WithLogger(logger),
		builder.WithMaxRPS(maxRPS),
	}
	if !noDefaults {
		opts = append(opts, builder.WithDefaults(""))
	}
	b, err := builder.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create request builder: %w", err)
	}
	// Close writes the cookie jar, so its error matters.
	defer func() {
		if cerr := b.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close request builder: %w", cerr))
		}
	}()

	if profilePath != "" {
		profile, err := config.Load(profilePath)
		if err != nil {
			return err
		}
		if err := profile.Apply(b); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------------ //
	// 3. Command-line overrides
	// ------------------------------------------------------------------ //
	if userAgent != "" {
		b.SetUserAgent(userAgent)
	}
	if referer != "" {
		b.SetReferer(referer)
	}
	if timeout > 0 {
		b.SetTimeout(timeout)
	}
	if connectTimeout > 0 {
		b.SetConnectTimeout(connectTimeout)
	}
	if follow {
		b.AddOption(transport.OptFollowLocation, true)
	}
	if insecure {
		b.AddOption(transport.OptSSLVerifyPeer, false)
	}
	if proxyURL != "" {
		b.AddOption(transport.OptProxy, proxyURL)
	}
	if verbose > 0 {
		b.AddOption(transport.OptVerbose, true)
	}
	for _, h := range parseHeaders(rawHeaders) {
		b.AddHeader(h.Name, h.Value)
	}
	for _, c := range parseCookieString(cookieStr) {
		b.AddCookie(c.Name, c.Value)
	}
	if data != "" {
		b.AddRequestQuery(data)
	}
	if cookieJar != "" {
		if err := config.Touch(cookieJar); err != nil {
			return fmt.Errorf("failed to create cookie jar %q: %w", cookieJar, err)
		}
		if err := b.SetCookieFile(cookieJar); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------------ //
	// 4. Context (CTRL+C cancels the transfer)
	// ------------------------------------------------------------------ //
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// ------------------------------------------------------------------ //
	// 5. Transfer(s)
	// ------------------------------------------------------------------ //
	body, info, latency, err := perform(ctx, b, logger, targetURL, method, repeat)
	if err != nil {
		return err
	}

	result := &report.Result{
		Method:   b.Method().String(),
		Info:     info,
		BodySize: len(body),
	}
	if latency != nil {
		result.Latency = latency.Stats()
	}

	// ------------------------------------------------------------------ //
	// 6. History (optional)
	// ------------------------------------------------------------------ //
	if historyPath != "" {
		id, err := saveHistory(ctx, historyPath, b.Method(), info, len(body))
		if err != nil {
			return err
		}
		result.HistoryID = id
		logger.Info("transfer saved", "history", historyPath, "id", id)
	}

	// ------------------------------------------------------------------ //
	// 7. Output
	// ------------------------------------------------------------------ //
	out := cmd.OutOrStdout()

	if selectPath != "" {
		v := gjson.GetBytes(body, selectPath)
		if !v.Exists() {
			return fmt.Errorf("select: no value at %q in the response body", selectPath)
		}
		body = []byte(v.String() + "\n")
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, body, 0o644); err != nil {
			return fmt.Errorf("failed to write output file %q: %w", outputPath, err)
		}
	} else if _, err := out.Write(body); err != nil {
		return err
	}

	if writeOut != "" {
		v, err := b.TransferInfoValue(writeOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%v\n", v)
	}

	if reporter != nil {
		if err := reporter.Generate(ctx, result, out); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
	}

	return nil
}

// resolveMethod picks the verb: -I wins, then -X, then POST when
// parameters are given, else GET.
func resolveMethod(method, data string, head bool) string {
	switch {
	case head:
		return "HEAD"
	case method != "":
		return method
	case data != "":
		return "POST"
	default:
		return "GET"
	}
}

// perform runs the transfer n times. With n > 1 failures are counted
// rather than fatal and the latency of successful transfers is recorded;
// the body and info of the last successful transfer are returned.
func perform(ctx context.Context, b *builder.RequestBuilder, logger *slog.Logger, url, method string, n int) ([]byte, *transport.TransferInfo, *report.Latency, error) {
	var (
		body    []byte
		info    *transport.TransferInfo
		latency *report.Latency
		lastErr error
	)
	if n > 1 {
		latency = report.NewLatency()
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		resp, err := b.Request(ctx, url, method, nil)
		if err != nil {
			if latency == nil {
				return nil, nil, nil, err
			}
			logger.Warn("transfer failed", "attempt", i+1, "error", err)
			latency.RecordError()
			lastErr = err
			continue
		}
		if info, err = b.TransferInfo(); err != nil {
			return nil, nil, nil, err
		}
		body = resp
		if latency != nil {
			latency.Record(time.Duration(info.TotalTime * float64(time.Second)))
		}
	}
	if info == nil {
		return nil, nil, nil, lastErr
	}
	return body, info, latency, nil
}

func saveHistory(ctx context.Context, path string, method transport.Method, info *transport.TransferInfo, bodySize int) (string, error) {
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return "", fmt.Errorf("failed to open history %q: %w", path, err)
	}
	defer store.Close()

	rec := history.NewRecord(method, info, bodySize)
	if err := store.Save(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// --------------------------------------------------------------------------
// Flag helpers
// --------------------------------------------------------------------------

// parseCookieString parses a cookie header string (e.g., "name1=val1; name2=val2")
// into name/value pairs in the order given.
func parseCookieString(raw string) []transport.Field {
	var cookies []transport.Field
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		cookies = append(cookies, transport.Field{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return cookies
}

// parseHeaders parses header strings (e.g., "X-Custom: value") into
// name/value pairs. "X-Custom:" yields an empty value, which removes the
// header from the transfer.
func parseHeaders(rawHeaders []string) []transport.Field {
	var headers []transport.Field
	for _, h := range rawHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		headers = append(headers, transport.Field{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return headers
}
