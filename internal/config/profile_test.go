package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x6d61/curlwrap/internal/builder"
	"github.com/0x6d61/curlwrap/internal/transport"
)

type recordingTransport struct {
	last *transport.Request
}

func (r *recordingTransport) Perform(_ context.Context, req *transport.Request) ([]byte, error) {
	r.last = req.Clone()
	return nil, nil
}

func (r *recordingTransport) Info() *transport.TransferInfo { return &transport.TransferInfo{HTTPCode: 200} }

func (r *recordingTransport) Close() error { return nil }

func newBuilder(t *testing.T) (*builder.RequestBuilder, *recordingTransport) {
	t.Helper()
	rt := &recordingTransport{}
	b, err := builder.New(builder.WithTransportFactory(func() (transport.Transport, error) {
		return rt, nil
	}))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, rt
}

const sample = `
defaults: true
user_agent: bot
headers:
  X-Api-Key: abc
  Pragma: no-cache
  X-Empty: ""
cookies:
  session: xyz
  id: 7
options:
  timeout: 10
  follow-location: true
params:
  z: last
  a: first
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.True(t, p.Defaults)
	assert.Equal(t, "bot", p.UserAgent)
	assert.Equal(t, Pairs{{Name: "X-Api-Key", Value: "abc"}, {Name: "Pragma", Value: "no-cache"}, {Name: "X-Empty", Value: ""}}, p.Headers)
	assert.Equal(t, Pairs{{Name: "session", Value: "xyz"}, {Name: "id", Value: "7"}}, p.Cookies)
	assert.Equal(t, Pairs{{Name: "z", Value: "last"}, {Name: "a", Value: "first"}}, p.Params)
	assert.Equal(t, 10, p.Options["timeout"])
	assert.Equal(t, true, p.Options["follow-location"])
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("user-agent: firefox\n"))
	assert.Error(t, err)
}

func TestParseRejectsNestedHeaderValues(t *testing.T) {
	_, err := Parse([]byte("headers:\n  X-List: [a, b]\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	p, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &Profile{}, p)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	doc := `
defaults: true
user_agent: bot
headers:
  Pragma: no-cache
  X-Api-Key: abc
cookies:
  session: xyz
  id: 7
options:
  timeout: 10
  follow-location: true
params:
  z: last
  a: first
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)

	b, rt := newBuilder(t)
	require.NoError(t, p.Apply(b))

	opts := b.Options()
	bot, _ := builder.UserAgent("bot")
	assert.Equal(t, bot, opts[transport.OptUserAgent])
	assert.Equal(t, 10, opts[transport.OptTimeout], "profile options override defaults")
	assert.Equal(t, 15, opts[transport.OptConnectTimeout])
	assert.Equal(t, true, opts[transport.OptFollowLocation])

	headers := b.Headers()
	assert.Equal(t, "no-cache", headers["Pragma"], "profile headers override defaults")
	assert.Equal(t, "abc", headers["X-Api-Key"])

	_, err = b.Get(context.Background(), "http://example.com/", nil)
	require.NoError(t, err)
	assert.Equal(t, "session=xyz; id=7; ", rt.last.Options[transport.OptCookie])
	assert.Equal(t, "http://example.com/?z=last&a=first", rt.last.URL())
}

func TestApplyUnknownOption(t *testing.T) {
	p, err := Parse([]byte("headers:\n  A: b\noptions:\n  warp_speed: 9\n"))
	require.NoError(t, err)

	b, _ := newBuilder(t)
	err = p.Apply(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp_speed")
	assert.Contains(t, err.Error(), "connect_timeout", "error lists the valid option names")
	assert.Empty(t, b.Headers(), "nothing is applied on error")
}

func TestApplyCreatesCookieFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jar.txt")
	p := &Profile{CookieFile: path}

	b, _ := newBuilder(t)
	require.NoError(t, p.Apply(b))
	assert.Equal(t, path, b.CookieFile())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestApplyCookieFileInMissingDir(t *testing.T) {
	p := &Profile{CookieFile: filepath.Join(t.TempDir(), "missing", "jar.txt")}

	b, _ := newBuilder(t)
	assert.Error(t, p.Apply(b))
	assert.Equal(t, "", b.CookieFile())
}
