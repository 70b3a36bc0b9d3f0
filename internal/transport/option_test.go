package transport

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	tests := []struct {
		verb string
		want Method
		wire string
	}{
		{"", Get, "GET"},
		{"get", Get, "GET"},
		{"HEAD", Head, "HEAD"},
		{"post", Post, "POST"},
		{"PUT", Custom("PUT"), "PUT"},
		{"Delete", Custom("Delete"), "Delete"},
		{"PATCH", Custom("PATCH"), "PATCH"},
		{"purge", Custom("purge"), "purge"},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			got := ParseMethod(tt.verb)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wire, got.String())
		})
	}
	assert.True(t, Get.IsGet())
	assert.False(t, Post.IsGet())
}

func TestParseOption(t *testing.T) {
	for _, name := range OptionNames() {
		opt, err := ParseOption(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, opt.String())
	}

	opt, err := ParseOption("Connect-Timeout")
	require.NoError(t, err)
	assert.Equal(t, OptConnectTimeout, opt)

	_, err = ParseOption("nope")
	assert.Error(t, err)
	assert.Equal(t, "option(999)", Option(999).String())
}

func TestOptionsClone(t *testing.T) {
	orig := Options{
		OptURL:        "http://example.com",
		OptHTTPHeader: []string{"A: 1"},
		OptPostFields: []Field{{Name: "a", Value: "1"}},
	}
	clone := orig.Clone()
	clone[OptHTTPHeader].([]string)[0] = "B: 2"
	clone[OptPostFields].([]Field)[0].Value = "2"
	clone[OptURL] = "http://other"

	assert.Equal(t, "A: 1", orig[OptHTTPHeader].([]string)[0])
	assert.Equal(t, "1", orig[OptPostFields].([]Field)[0].Value)
	assert.Equal(t, "http://example.com", orig[OptURL])
	assert.Nil(t, Options(nil).Clone())
}

func TestRequestClone(t *testing.T) {
	orig := &Request{Method: Custom("PUT"), Options: Options{OptURL: "http://example.com"}}
	clone := orig.Clone()
	clone.Options[OptURL] = "http://changed"
	assert.Equal(t, "http://example.com", orig.URL())
	assert.Equal(t, Custom("PUT"), clone.Method)

	var nilReq *Request
	assert.Nil(t, nilReq.Clone())
}

func TestOptSeconds(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
		bad  bool
	}{
		{15, 15 * time.Second, false},
		{int64(2), 2 * time.Second, false},
		{0.5, 500 * time.Millisecond, false},
		{"3", 3 * time.Second, false},
		{1500 * time.Millisecond, 1500 * time.Millisecond, false},
		{-1, 0, true},
		{true, 0, true},
		{1e10, 0, true},
		{math.Inf(1), 0, true},
	}
	for _, tt := range tests {
		got, err := optSeconds(Options{OptTimeout: tt.in}, OptTimeout)
		if tt.bad {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestOptBool(t *testing.T) {
	b, err := optBool(Options{OptVerbose: 1}, OptVerbose)
	require.NoError(t, err)
	assert.True(t, *b)

	b, err = optBool(Options{OptVerbose: "false"}, OptVerbose)
	require.NoError(t, err)
	assert.False(t, *b)

	b, err = optBool(Options{}, OptVerbose)
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = optBool(Options{OptVerbose: []int{1}}, OptVerbose)
	assert.Error(t, err)
}

func TestTransferInfoLookup(t *testing.T) {
	info := &TransferInfo{HTTPCode: 201, URL: "http://example.com"}
	m := info.Map()
	assert.Len(t, m, len(InfoKeys))
	for _, k := range InfoKeys {
		_, ok := m[k]
		assert.True(t, ok, k)
	}

	v, ok := info.Lookup("http_code")
	assert.True(t, ok)
	assert.Equal(t, 201, v)

	_, ok = info.Lookup("bogus")
	assert.False(t, ok)
}
