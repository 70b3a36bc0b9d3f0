package transport

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"time"
)

// tracer collects phase timings for one transfer. Times are offsets from
// start of the most recent hop's corresponding event.
type tracer struct {
	mu sync.Mutex

	start         time.Time
	dnsDone       time.Duration
	connectDone   time.Duration
	gotConn       time.Duration
	firstByte     time.Duration
	redirectTime  time.Duration
	redirectCount int
	tlsVerifyFail bool
}

func newTracer() *tracer {
	return &tracer{}
}

func (tr *tracer) since() time.Duration {
	return time.Since(tr.start)
}

func (tr *tracer) withTrace(ctx context.Context) context.Context {
	return httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		DNSDone: func(httptrace.DNSDoneInfo) {
			tr.mu.Lock()
			tr.dnsDone = tr.since()
			tr.mu.Unlock()
		},
		ConnectDone: func(_, _ string, err error) {
			if err != nil {
				return
			}
			tr.mu.Lock()
			tr.connectDone = tr.since()
			tr.mu.Unlock()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				return
			}
			tr.mu.Lock()
			tr.tlsVerifyFail = true
			tr.mu.Unlock()
		},
		GotConn: func(httptrace.GotConnInfo) {
			tr.mu.Lock()
			tr.gotConn = tr.since()
			tr.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			tr.mu.Lock()
			tr.firstByte = tr.since()
			tr.mu.Unlock()
		},
	})
}

// redirectPolicy builds the CheckRedirect hook for s. It enforces
// OptFollowLocation and OptMaxRedirs and applies OptAutoReferer.
func (tr *tracer) redirectPolicy(s *settings) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !s.follow {
			return http.ErrUseLastResponse
		}
		if len(via) > s.maxRedirs {
			return errTooManyRedirects
		}

		// net/http sets a Referer on redirects on its own; keep only the
		// one the caller asked for unless auto-referer is on.
		if s.autoReferer {
			req.Header.Set("Referer", via[len(via)-1].URL.String())
		} else if s.referer != nil && *s.referer != "" {
			req.Header.Set("Referer", *s.referer)
		} else {
			req.Header.Del("Referer")
		}

		tr.mu.Lock()
		tr.redirectCount = len(via)
		tr.redirectTime = tr.since()
		tr.mu.Unlock()
		return nil
	}
}

// snapshot builds the TransferInfo for a completed transfer.
func (tr *tracer) snapshot(resp *http.Response, s *settings, total time.Duration, headerSize, downloaded, uploadLen int64) *TransferInfo {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	info := &TransferInfo{
		URL:                   resp.Request.URL.String(),
		ContentType:           resp.Header.Get("Content-Type"),
		HTTPCode:              resp.StatusCode,
		HeaderSize:            headerSize,
		RequestSize:           requestSize(resp.Request),
		Filetime:              -1,
		RedirectCount:         tr.redirectCount,
		TotalTime:             total.Seconds(),
		NameLookupTime:        tr.dnsDone.Seconds(),
		ConnectTime:           tr.connectDone.Seconds(),
		PretransferTime:       tr.gotConn.Seconds(),
		StartTransferTime:     tr.firstByte.Seconds(),
		RedirectTime:          tr.redirectTime.Seconds(),
		SizeDownload:          downloaded,
		DownloadContentLength: resp.ContentLength,
		UploadContentLength:   uploadLen,
	}
	if uploadLen > 0 {
		info.SizeUpload = uploadLen
	}
	if tr.tlsVerifyFail {
		info.SSLVerifyResult = 1
	}

	if secs := total.Seconds(); secs > 0 {
		info.SpeedDownload = float64(info.SizeDownload) / secs
		info.SpeedUpload = float64(info.SizeUpload) / secs
	}

	if s.filetime {
		if lm := strings.TrimSpace(resp.Header.Get("Last-Modified")); lm != "" {
			if t, err := http.ParseTime(lm); err == nil {
				info.Filetime = t.Unix()
			}
		}
	}

	return info
}
