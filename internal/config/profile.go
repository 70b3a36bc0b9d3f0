// Package config loads request profiles: YAML files that seed a
// RequestBuilder with defaults, options, headers, cookies, params and a
// cookie file.
//
// Example:
//
//	defaults: true
//	user_agent: firefox
//	cookie_file: ./cookies.txt
//	headers:
//	  X-Api-Key: abc
//	cookies:
//	  session: xyz
//	options:
//	  timeout: 10
//	  follow_location: true
//	params:
//	  lang: en
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0x6d61/curlwrap/internal/builder"
	"github.com/0x6d61/curlwrap/internal/transport"
)

// Profile is a decoded profile file.
type Profile struct {
	Defaults   bool           `yaml:"defaults"`
	UserAgent  string         `yaml:"user_agent"`
	CookieFile string         `yaml:"cookie_file"`
	Headers    Pairs          `yaml:"headers"`
	Cookies    Pairs          `yaml:"cookies"`
	Options    map[string]any `yaml:"options"`
	Params     Pairs          `yaml:"params"`
}

// Pairs is a YAML mapping of scalars that keeps document order.
type Pairs []transport.Field

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Pairs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make(Pairs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %q must be a scalar", v.Line, k.Value)
		}
		value := v.Value
		if v.Tag == "!!null" {
			value = ""
		}
		out = append(out, transport.Field{Name: k.Value, Value: value})
	}
	*p = out
	return nil
}

// Load reads a profile from path. Unknown top-level keys are rejected and
// an empty file yields an empty profile.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a profile document.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &p, nil
}

// Apply seeds b in the order defaults, options, user agent, headers,
// cookies, params, cookie file. A missing cookie file is created empty.
// Nothing is applied when an option name is unknown.
func (p *Profile) Apply(b *builder.RequestBuilder) error {
	opts, err := p.options()
	if err != nil {
		return err
	}

	if p.Defaults {
		b.SetDefaults()
	}
	b.AddOptions(opts)
	if p.UserAgent != "" {
		b.SetUserAgent(p.UserAgent)
	}
	for _, h := range p.Headers {
		b.AddHeader(h.Name, h.Value)
	}
	for _, c := range p.Cookies {
		b.AddCookie(c.Name, c.Value)
	}
	if len(p.Params) > 0 {
		if err := b.MergeRequestParams([]transport.Field(p.Params)); err != nil {
			return err
		}
	}
	if p.CookieFile != "" {
		if err := Touch(p.CookieFile); err != nil {
			return fmt.Errorf("config: cookie file: %w", err)
		}
		if err := b.SetCookieFile(p.CookieFile); err != nil {
			return err
		}
	}
	return nil
}

func (p *Profile) options() (transport.Options, error) {
	names := make([]string, 0, len(p.Options))
	for name := range p.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make(transport.Options, len(names))
	for _, name := range names {
		opt, err := transport.ParseOption(name)
		if err != nil {
			return nil, fmt.Errorf("config: %w (valid: %s)", err, strings.Join(transport.OptionNames(), ", "))
		}
		opts[opt] = p.Options[name]
	}
	return opts, nil
}

// Touch creates path if it does not exist, leaving existing content alone.
func Touch(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}
