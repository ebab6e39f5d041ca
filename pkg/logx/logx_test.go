package logx

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWriterLevelsAndFields(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	log := NewWriter(&buf, "info").With(String("comp", "ledger"))

	log.Debug("hidden")
	log.Info("recorded", String("identity", "10 watching"), Int("lines", 3))
	log.Error("append failed", Err(errors.New("disk full")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level:\n%s", out)
	}
	for _, want := range []string{"recorded", "comp=ledger", "lines=3", "append failed", "disk full"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestZeroAndNopLoggers(t *testing.T) {
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	zero.Info("nothing happens")
	if Nop().IsZero() {
		t.Fatal("Nop should not be the zero Logger")
	}
	Nop().Error("dropped", Err(nil))
}

func TestBodyTruncates(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug")
	log.Debug("response", Body("body", bytes.Repeat([]byte("x"), 5000)))
	if strings.Contains(buf.String(), strings.Repeat("x", 4001)) {
		t.Fatal("body not truncated")
	}
	if !strings.Contains(buf.String(), "...") {
		t.Fatalf("truncation marker missing:\n%s", buf.String())
	}
}

func TestServiceFileSinkAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchpost.log")
	svc, log := New(Config{Level: "warn", File: FileConfig{Enabled: true, Path: path}})
	defer svc.Close()

	log.Info("quiet")
	log.Warn("loud")
	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("now visible")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "quiet") {
		t.Fatalf("info line written at warn level:\n%s", out)
	}
	if !strings.Contains(out, `"message":"loud"`) || !strings.Contains(out, `"message":"now visible"`) {
		t.Fatalf("unexpected log file:\n%s", out)
	}
}

func TestValidLevel(t *testing.T) {
	for _, ok := range []string{"", "trace", "DEBUG", "info", "warning", "error"} {
		if !ValidLevel(ok) {
			t.Fatalf("ValidLevel(%q) = false", ok)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}

func TestRedactURL(t *testing.T) {
	cases := map[string]string{
		"https://api.annict.com/v1/activities?access_token=s3cret&user_id=1": "https://api.annict.com/v1/activities?access_token=REDACTED&user_id=1",
		"https://example.com/path?page=2":                                   "https://example.com/path?page=2",
		"not a url %zz":                                                     "not a url %zz",
	}
	for in, want := range cases {
		if got := RedactURL(in); got != want {
			t.Errorf("RedactURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCallerIsShortFileLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caller.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	log.Info("where")
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"caller":"logx_test.go:`) {
		t.Fatalf("caller not reported as the calling file:\n%s", b)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("観", 5) // 15 bytes
	for n := 1; n < len(s); n++ {
		got := truncate(s, n)
		if !utf8.ValidString(got) || len(got) > n {
			t.Fatalf("truncate(%d) = %q", n, got)
		}
	}
	if got := truncate("a"+strings.Repeat("観", 5), 12); got != "a観観..." {
		t.Fatalf("truncate = %q", got)
	}
}
