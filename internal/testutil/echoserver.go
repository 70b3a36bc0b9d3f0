// Package testutil provides an HTTP fixture server for tests of the
// transport, the request builder and the CLI.
//
// Endpoints:
//
//	/echo                 reflects the request as JSON (see Echo)
//	/cookies/set?k=v      sets every query pair as a cookie, then echoes
//	/redirect/{n}         redirects n times, ending at /echo
//	/gzip, /deflate       compressed payload, honouring Accept-Encoding
//	/status/{code}        replies with the given status code
//	/slow?ms=N            sleeps N milliseconds before echoing
//	/lastmod              sets a fixed Last-Modified header
//	/json                 a fixed JSON document
package testutil

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"
)

// Payload is the plain-text body served by /gzip and /deflate.
const Payload = "compressed payload: hello from the fixture server"

// LastModified is the Last-Modified value served by /lastmod.
var LastModified = time.Date(2020, time.March, 1, 12, 0, 0, 0, time.UTC)

// JSONDocument is the body served by /json.
const JSONDocument = `{"user":{"name":"admin","id":1},"tags":["a","b"]}`

// Echo is the JSON document returned by /echo.
type Echo struct {
	Method      string              `json:"method"`
	RequestURI  string              `json:"request_uri"`
	Query       map[string][]string `json:"query"`
	Headers     map[string]string   `json:"headers"`
	Cookies     map[string]string   `json:"cookies"`
	Form        map[string]string   `json:"form"`
	ContentType string              `json:"content_type"`
	Body        string              `json:"body"`
}

// NewEchoServer starts the fixture server. The caller must Close it.
func NewEchoServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/cookies/set", handleSetCookies)
	mux.HandleFunc("/redirect/{n}", handleRedirect)
	mux.HandleFunc("/gzip", handleGzip)
	mux.HandleFunc("/deflate", handleDeflate)
	mux.HandleFunc("/status/{code}", handleStatus)
	mux.HandleFunc("/slow", handleSlow)
	mux.HandleFunc("/lastmod", handleLastMod)
	mux.HandleFunc("/json", handleJSON)

	return httptest.NewServer(mux)
}

// DecodeEcho parses a body produced by /echo.
func DecodeEcho(body []byte) (*Echo, error) {
	var e Echo
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("decode echo: %w (body %q)", err, body)
	}
	return &e, nil
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))

	e := Echo{
		Method:      r.Method,
		RequestURI:  r.RequestURI,
		Query:       r.URL.Query(),
		Headers:     make(map[string]string),
		Cookies:     make(map[string]string),
		Form:        make(map[string]string),
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(raw),
	}
	for name := range r.Header {
		e.Headers[name] = r.Header.Get(name)
	}
	for _, c := range r.Cookies() {
		e.Cookies[c.Name] = c.Value
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				e.Form[k] = v[len(v)-1]
			}
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				e.Form[k] = v[len(v)-1]
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Echo", "1")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	json.NewEncoder(w).Encode(e) //nolint:errcheck
}

func handleSetCookies(w http.ResponseWriter, r *http.Request) {
	for name, values := range r.URL.Query() {
		http.SetCookie(w, &http.Cookie{
			Name:    name,
			Value:   values[len(values)-1],
			Path:    "/",
			Expires: time.Now().Add(24 * time.Hour),
		})
	}
	handleEcho(w, r)
}

func handleRedirect(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		http.Error(w, "bad redirect count", http.StatusBadRequest)
		return
	}
	if n == 0 {
		http.Redirect(w, r, "/echo", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/redirect/"+strconv.Itoa(n-1), http.StatusFound)
}

func handleGzip(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		io.WriteString(w, Payload) //nolint:errcheck
		return
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(Payload)) //nolint:errcheck
	zw.Close()
	w.Header().Set("Content-Encoding", "gzip")
	w.Write(buf.Bytes()) //nolint:errcheck
}

func handleDeflate(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "deflate") {
		io.WriteString(w, Payload) //nolint:errcheck
		return
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte(Payload)) //nolint:errcheck
	zw.Close()
	w.Header().Set("Content-Encoding", "deflate")
	w.Write(buf.Bytes()) //nolint:errcheck
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 999 {
		http.Error(w, "bad status code", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
	fmt.Fprintf(w, "status %d", code)
}

func handleSlow(w http.ResponseWriter, r *http.Request) {
	ms, _ := strconv.Atoi(r.URL.Query().Get("ms"))
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-r.Context().Done():
		return
	}
	handleEcho(w, r)
}

func handleLastMod(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Last-Modified", LastModified.Format(http.TimeFormat))
	io.WriteString(w, "dated") //nolint:errcheck
}

func handleJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, JSONDocument) //nolint:errcheck
}
