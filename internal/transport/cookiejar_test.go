package transport

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJarLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		ok   bool
		want jarEntry
	}{
		{
			name: "domain cookie",
			line: ".example.com\tTRUE\t/\tFALSE\t2000000000\tsid\tabc",
			ok:   true,
			want: jarEntry{Domain: "example.com", Subdomains: true, Path: "/", Expires: 2000000000, Name: "sid", Value: "abc"},
		},
		{
			name: "http only secure",
			line: "#HttpOnly_example.com\tFALSE\t/app\tTRUE\t0\tk\tv",
			ok:   true,
			want: jarEntry{Domain: "example.com", Path: "/app", Secure: true, HTTPOnly: true, Name: "k", Value: "v"},
		},
		{name: "comment", line: "# Netscape HTTP Cookie File"},
		{name: "blank", line: "   "},
		{name: "short", line: "example.com\tFALSE\t/"},
		{name: "bad expiry", line: "example.com\tFALSE\t/\tFALSE\tsoon\tk\tv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseJarLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormatJarLineRoundTrip(t *testing.T) {
	e := jarEntry{Domain: "example.com", Subdomains: true, Path: "/", HTTPOnly: true, Expires: 123, Name: "a", Value: "b"}
	line := formatJarLine(e)
	assert.Equal(t, "#HttpOnly_.example.com\tTRUE\t/\tFALSE\t123\ta\tb", line)

	back, ok := parseJarLine(line)
	require.True(t, ok)
	assert.Equal(t, e, back)
}

func TestCookieJar_SetCookiesTracksAndDeletes(t *testing.T) {
	jar, err := NewCookieJar()
	require.NoError(t, err)

	u, _ := url.Parse("http://example.com/app/page")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session", Value: "1"},
		{Name: "pref", Value: "dark", Domain: ".example.com", Path: "/", MaxAge: 3600},
	})
	assert.Equal(t, 2, jar.Len())
	assert.Len(t, jar.Cookies(u), 2)

	jar.SetCookies(u, []*http.Cookie{{Name: "pref", Domain: ".example.com", Path: "/", MaxAge: -1}})
	assert.Equal(t, 1, jar.Len())
}

func TestCookieJar_RejectedCookiesNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jar.txt")

	jar, err := NewCookieJar()
	require.NoError(t, err)

	ip, _ := url.Parse("http://127.0.0.1/")
	jar.SetCookies(ip, []*http.Cookie{{Name: "evil", Value: "1", Domain: "example.com"}})
	shop, _ := url.Parse("http://shop.example.co.uk/")
	jar.SetCookies(shop, []*http.Cookie{
		{Name: "suffix", Value: "1", Domain: ".co.uk"},
		{Name: "other", Value: "1", Domain: "example.org"},
	})
	assert.Equal(t, 0, jar.Len())
	require.NoError(t, jar.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "evil")
	assert.NotContains(t, string(data), "suffix")
	assert.NotContains(t, string(data), "other")

	loaded, err := NewCookieJar()
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))
	target, _ := url.Parse("http://example.com/")
	assert.Empty(t, loaded.Cookies(target))
}

func TestCookieDomain(t *testing.T) {
	tests := []struct {
		host, domain string
		want         string
		hostOnly, ok bool
	}{
		{"example.com", "", "example.com", true, true},
		{"www.example.com", ".example.com", "example.com", false, true},
		{"www.example.com", "EXAMPLE.com", "example.com", false, true},
		{"example.com", "www.example.com", "", false, false},
		{"badexample.com", "example.com", "", false, false},
		{"127.0.0.1", "example.com", "127.0.0.1", true, false},
		{"127.0.0.1", "127.0.0.1", "127.0.0.1", true, true},
		{"shop.example.co.uk", "co.uk", "shop.example.co.uk", true, false},
		{"localhost", "localhost", "localhost", true, true},
		{"www.example.com", "example.com.", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.host+" "+tt.domain, func(t *testing.T) {
			got, hostOnly, ok := cookieDomain(tt.host, tt.domain)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.hostOnly, hostOnly)
			}
		})
	}
}

func TestCookieJar_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jar.txt")

	jar, err := NewCookieJar()
	require.NoError(t, err)
	u, _ := url.Parse("https://shop.example.com/")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "cart", Value: "42", Path: "/", Secure: true, HttpOnly: true, Expires: time.Now().Add(time.Hour)},
		{Name: "tmp", Value: "x", Path: "/"},
	})
	require.NoError(t, jar.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Netscape HTTP Cookie File"))
	assert.Contains(t, string(data), "#HttpOnly_shop.example.com\tFALSE\t/\tTRUE\t")

	loaded, err := NewCookieJar()
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.Len())

	names := map[string]string{}
	for _, c := range loaded.Cookies(u) {
		names[c.Name] = c.Value
	}
	assert.Equal(t, map[string]string{"cart": "42", "tmp": "x"}, names)
}

func TestCookieJar_LoadSkipsExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jar.txt")
	past := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	content := "example.com\tFALSE\t/\tFALSE\t" + past + "\told\tv\n" +
		"example.com\tFALSE\t/\tFALSE\t0\tsession\tv\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	jar, err := NewCookieJar()
	require.NoError(t, err)
	require.NoError(t, jar.Load(path))
	assert.Equal(t, 1, jar.Len())
}

func TestCookieJar_LoadMissingFile(t *testing.T) {
	jar, err := NewCookieJar()
	require.NoError(t, err)
	assert.NoError(t, jar.Load(filepath.Join(t.TempDir(), "missing.txt")))
	assert.Equal(t, 0, jar.Len())
}

func TestDefaultCookiePath(t *testing.T) {
	assert.Equal(t, "/", defaultCookiePath(""))
	assert.Equal(t, "/", defaultCookiePath("/"))
	assert.Equal(t, "/", defaultCookiePath("/page"))
	assert.Equal(t, "/app", defaultCookiePath("/app/page"))
}
