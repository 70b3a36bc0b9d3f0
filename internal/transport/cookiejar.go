package transport

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const httpOnlyPrefix = "#HttpOnly_"

// jarEntry is one cookie as recorded in a Netscape cookie file.
type jarEntry struct {
	Domain     string
	Subdomains bool
	Path       string
	Secure     bool
	HTTPOnly   bool
	Expires    int64 // unix seconds, 0 = session cookie
	Name       string
	Value      string
}

func (e jarEntry) key() string {
	return e.Domain + "\x00" + e.Path + "\x00" + e.Name
}

// CookieJar is an http.CookieJar that can be loaded from and saved to a
// Netscape-format cookie file. Cookie matching is delegated to the
// standard library jar; the entries map only tracks what to write back.
type CookieJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	entries map[string]jarEntry
}

// Compile-time check that CookieJar implements http.CookieJar.
var _ http.CookieJar = (*CookieJar)(nil)

// NewCookieJar returns an empty jar.
func NewCookieJar() (*CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookiejar: new: %w", err)
	}
	return &CookieJar{jar: jar, entries: make(map[string]jarEntry)}, nil
}

// Cookies implements http.CookieJar.
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// SetCookies implements http.CookieJar.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	host := strings.ToLower(u.Hostname())
	for _, c := range cookies {
		domain, hostOnly, ok := cookieDomain(host, c.Domain)
		if !ok {
			continue
		}
		e := jarEntry{
			Domain:     domain,
			Subdomains: !hostOnly,
			Path:       c.Path,
			Secure:     c.Secure,
			HTTPOnly:   c.HttpOnly,
			Name:       c.Name,
			Value:      c.Value,
		}
		if e.Path == "" || e.Path[0] != '/' {
			e.Path = defaultCookiePath(u.Path)
		}

		switch {
		case c.MaxAge < 0:
			delete(j.entries, e.key())
			continue
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second).Unix()
		case !c.Expires.IsZero():
			if !c.Expires.After(now) {
				delete(j.entries, e.key())
				continue
			}
			e.Expires = c.Expires.Unix()
		}
		j.entries[e.key()] = e
	}
}

// cookieDomain applies the Domain attribute rules of RFC 6265 5.3 the way
// net/http/cookiejar does, so only cookies the jar actually stored are
// tracked for Save.
func cookieDomain(host, domain string) (string, bool, bool) {
	if domain == "" {
		return host, true, host != ""
	}
	if net.ParseIP(host) != nil {
		return host, true, host == domain
	}
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	if domain == "" || domain[0] == '.' || strings.HasSuffix(domain, ".") {
		return "", false, false
	}
	if ps := publicsuffix.List.PublicSuffix(domain); ps != "" && !strings.HasSuffix(domain, "."+ps) {
		// A public suffix may only name the host itself.
		return host, true, host == domain
	}
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", false, false
	}
	return domain, false, true
}

// Len returns the number of tracked cookies.
func (j *CookieJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Load reads a Netscape cookie file into the jar. A missing or empty file
// is not an error.
func (j *CookieJar) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cookiejar: open %s: %w", path, err)
	}
	defer f.Close()

	now := time.Now().Unix()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		e, ok := parseJarLine(sc.Text())
		if !ok {
			continue
		}
		if e.Expires != 0 && e.Expires <= now {
			continue
		}
		j.restore(e)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("cookiejar: read %s: %w", path, err)
	}
	return nil
}

// restore inserts a parsed file entry into both the matching jar and the
// tracked entries.
func (j *CookieJar) restore(e jarEntry) {
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}
	u := &url.URL{Scheme: scheme, Host: e.Domain, Path: e.Path}

	c := &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Path:     e.Path,
		Secure:   e.Secure,
		HttpOnly: e.HTTPOnly,
	}
	if e.Subdomains {
		c.Domain = e.Domain
	}
	if e.Expires != 0 {
		c.Expires = time.Unix(e.Expires, 0)
	}

	j.jar.SetCookies(u, []*http.Cookie{c})

	j.mu.Lock()
	j.entries[e.key()] = e
	j.mu.Unlock()
}

// Save writes every tracked, unexpired cookie to path in Netscape format,
// replacing the file's contents.
func (j *CookieJar) Save(path string) error {
	j.mu.Lock()
	entries := make([]jarEntry, 0, len(j.entries))
	now := time.Now().Unix()
	for _, e := range j.entries {
		if e.Expires != 0 && e.Expires <= now {
			continue
		}
		entries = append(entries, e)
	}
	j.mu.Unlock()

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].key() < entries[b].key()
	})

	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	b.WriteString("# This file was generated by curlwrap. Edit at your own risk.\n\n")
	for _, e := range entries {
		b.WriteString(formatJarLine(e))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("cookiejar: write %s: %w", path, err)
	}
	return nil
}

func parseJarLine(line string) (jarEntry, bool) {
	var e jarEntry

	line = strings.TrimRight(line, "\r")
	if strings.HasPrefix(line, httpOnlyPrefix) {
		e.HTTPOnly = true
		line = strings.TrimPrefix(line, httpOnlyPrefix)
	} else if strings.HasPrefix(line, "#") {
		return e, false
	}
	if strings.TrimSpace(line) == "" {
		return e, false
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return e, false
	}

	expires, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return e, false
	}

	e.Domain = strings.TrimPrefix(strings.ToLower(fields[0]), ".")
	e.Subdomains = strings.EqualFold(fields[1], "TRUE")
	e.Path = fields[2]
	e.Secure = strings.EqualFold(fields[3], "TRUE")
	e.Expires = expires
	e.Name = fields[5]
	e.Value = fields[6]
	return e, e.Domain != ""
}

func formatJarLine(e jarEntry) string {
	domain := e.Domain
	if e.Subdomains {
		domain = "." + domain
	}
	if e.HTTPOnly {
		domain = httpOnlyPrefix + domain
	}
	return strings.Join([]string{
		domain,
		boolField(e.Subdomains),
		e.Path,
		boolField(e.Secure),
		strconv.FormatInt(e.Expires, 10),
		e.Name,
		e.Value,
	}, "\t")
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// defaultCookiePath implements the default-path rule of RFC 6265 5.1.4.
func defaultCookiePath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}
