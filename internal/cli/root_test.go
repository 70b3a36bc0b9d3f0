package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// executeCommand runs rootCmd with args after restoring every flag to its
// default, and returns what the command wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommandExists(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd should not be nil")
	}
	if rootCmd.Use != "curlwrap" {
		t.Errorf("expected Use to be 'curlwrap', got %q", rootCmd.Use)
	}
}

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd should not be nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("expected Use to be 'version', got %q", versionCmd.Use)
	}
}

func TestExecuteVersion(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if !strings.HasPrefix(out, "curlwrap dev") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{"request": false, "history": false, "version": false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s subcommand not registered on rootCmd", name)
		}
	}

	var subs []string
	for _, cmd := range historyCmd.Commands() {
		subs = append(subs, cmd.Name())
	}
	for _, name := range []string{"list", "show", "delete", "cleanup"} {
		found := false
		for _, s := range subs {
			if s == name {
				found = true
			}
		}
		if !found {
			t.Errorf("history %s not registered; got %v", name, subs)
		}
	}
}

func TestRequestCommand_MissingURL(t *testing.T) {
	_, err := executeCommand(t, "request")
	if err == nil {
		t.Fatal("expected error when URL is not provided, got nil")
	}
}

func TestRequestCommand_InvalidRepeat(t *testing.T) {
	_, err := executeCommand(t, "request", "http://example.com", "--repeat", "0")
	if err == nil || !strings.Contains(err.Error(), "--repeat") {
		t.Errorf("expected --repeat error, got %v", err)
	}
}

func TestRequestCommand_UnknownInfoFormat(t *testing.T) {
	_, err := executeCommand(t, "request", "http://example.com", "-i", "xml")
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestHistoryCommand_RequiresDB(t *testing.T) {
	_, err := executeCommand(t, "history", "list")
	if err == nil {
		t.Fatal("expected error when --db is not provided, got nil")
	}
}

func TestRequestFlags_Defaults(t *testing.T) {
	resetFlags(rootCmd)
	f := requestCmd.Flags()

	tests := []struct {
		name     string
		getVal   func() (interface{}, error)
		expected interface{}
	}{
		{"method", func() (interface{}, error) { return f.GetString("method") }, ""},
		{"data", func() (interface{}, error) { return f.GetString("data") }, ""},
		{"cookie", func() (interface{}, error) { return f.GetString("cookie") }, ""},
		{"cookie-jar", func() (interface{}, error) { return f.GetString("cookie-jar") }, ""},
		{"timeout", func() (interface{}, error) { return f.GetInt("timeout") }, 0},
		{"location", func() (interface{}, error) { return f.GetBool("location") }, false},
		{"insecure", func() (interface{}, error) { return f.GetBool("insecure") }, false},
		{"no-defaults", func() (interface{}, error) { return f.GetBool("no-defaults") }, false},
		{"repeat", func() (interface{}, error) { return f.GetInt("repeat") }, 1},
		{"max-rps", func() (interface{}, error) { return f.GetFloat64("max-rps") }, float64(0)},
		{"verbose", func() (interface{}, error) { return rootCmd.PersistentFlags().GetCount("verbose") }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := tt.getVal()
			if err != nil {
				t.Fatalf("error getting flag %q: %v", tt.name, err)
			}
			if val != tt.expected {
				t.Errorf("flag %q: expected %v (%T), got %v (%T)",
					tt.name, tt.expected, tt.expected, val, val)
			}
		})
	}
}

func TestResolveMethod(t *testing.T) {
	tests := []struct {
		method string
		data   string
		head   bool
		want   string
	}{
		{"", "", false, "GET"},
		{"", "a=1", false, "POST"},
		{"put", "a=1", false, "put"},
		{"PUT", "a=1", false, "PUT"},
		{"DELETE", "", false, "DELETE"},
		{"POST", "", true, "HEAD"},
	}
	for _, tt := range tests {
		if got := resolveMethod(tt.method, tt.data, tt.head); got != tt.want {
			t.Errorf("resolveMethod(%q, %q, %v) = %q, want %q", tt.method, tt.data, tt.head, got, tt.want)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	tests := []struct {
		verbosity int
		enabled   slog.Level
		disabled  slog.Level
	}{
		{0, slog.LevelWarn, slog.LevelInfo},
		{1, slog.LevelInfo, slog.LevelDebug},
		{2, slog.LevelDebug, slog.LevelDebug - 4},
	}
	for _, tt := range tests {
		l := newLogger(&bytes.Buffer{}, tt.verbosity)
		if !l.Enabled(context.Background(), tt.enabled) {
			t.Errorf("verbosity %d: level %v should be enabled", tt.verbosity, tt.enabled)
		}
		if l.Enabled(context.Background(), tt.disabled) {
			t.Errorf("verbosity %d: level %v should be disabled", tt.verbosity, tt.disabled)
		}
	}
}

func TestParseCookieString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected [][2]string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single cookie",
			input:    "PHPSESSID=abc123",
			expected: [][2]string{{"PHPSESSID", "abc123"}},
		},
		{
			name:  "multiple cookies keep order",
			input: "PHPSESSID=abc123; token=xyz789; user=admin",
			expected: [][2]string{
				{"PHPSESSID", "abc123"},
				{"token", "xyz789"},
				{"user", "admin"},
			},
		},
		{
			name:  "cookies with spaces",
			input: " name1 = val1 ; name2 = val2 ",
			expected: [][2]string{
				{"name1", "val1"},
				{"name2", "val2"},
			},
		},
		{
			name:     "pair without value is skipped",
			input:    "flag; a=b=c",
			expected: [][2]string{{"a", "b=c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCookieString(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d cookies, got %d", len(tt.expected), len(result))
			}
			for i, want := range tt.expected {
				if result[i].Name != want[0] || result[i].Value != want[1] {
					t.Errorf("cookie %d: expected %s=%s, got %s=%s", i, want[0], want[1], result[i].Name, result[i].Value)
				}
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected [][2]string
	}{
		{
			name:     "empty headers",
			input:    nil,
			expected: nil,
		},
		{
			name:     "single header",
			input:    []string{"X-Custom: value"},
			expected: [][2]string{{"X-Custom", "value"}},
		},
		{
			name:  "multiple headers",
			input: []string{"X-Custom: value", "Authorization: Bearer token123"},
			expected: [][2]string{
				{"X-Custom", "value"},
				{"Authorization", "Bearer token123"},
			},
		},
		{
			name:     "header with colon in value",
			input:    []string{"X-Forward: http://example.com:8080"},
			expected: [][2]string{{"X-Forward", "http://example.com:8080"}},
		},
		{
			name:     "empty value",
			input:    []string{"Accept:", "no-colon"},
			expected: [][2]string{{"Accept", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseHeaders(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %d headers, got %d", len(tt.expected), len(result))
			}
			for i, want := range tt.expected {
				if result[i].Name != want[0] || result[i].Value != want[1] {
					t.Errorf("header %d: expected %s: %s, got %s: %s", i, want[0], want[1], result[i].Name, result[i].Value)
				}
			}
		})
	}
}
