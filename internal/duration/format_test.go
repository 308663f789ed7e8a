package duration

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{time.Second, "1s"},
		{90 * time.Second, "1m 30s"},
		{Day, "1day"},
		{7 * Day, "7days"},
		{Day + 2*time.Hour + 5*time.Minute, "1day 2h 5m"},
		{34*time.Second + 127*time.Millisecond, "34s 127ms"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1day", Day},
		{"7days", 7 * Day},
		{"2h 30m", 2*time.Hour + 30*time.Minute},
		{"1h30m", 90 * time.Minute},
		{"  45 min ", 45 * time.Minute},
		{"1w", 7 * Day},
		{"500ms", 500 * time.Millisecond},
		{"1d 9m 389ms", Day + 9*time.Minute + 389*time.Millisecond},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "day", "12", "3 fortnights", "h5", "99999999999999999999d"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("Parse(%q): expected ErrInvalidDuration, got %v", in, err)
		}
	}
}

func TestFormat_ParseRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Second, 61 * time.Minute, 3*Day + 4*time.Hour, 26*time.Hour + 389*time.Millisecond} {
		got, err := Parse(Format(d))
		if err != nil {
			t.Fatalf("Parse(Format(%v)): %v", d, err)
		}
		if got != d {
			t.Errorf("round trip of %v gave %v", d, got)
		}
	}
}

func TestDuration_YAML(t *testing.T) {
	var doc struct {
		Interval Duration `yaml:"interval"`
	}
	if err := yaml.Unmarshal([]byte("interval: 1day 12h\n"), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Interval.Std() != 36*time.Hour {
		t.Errorf("expected 36h, got %v", doc.Interval.Std())
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), "interval: 1day 12h") {
		t.Errorf("unexpected yaml: %s", out)
	}

	if err := yaml.Unmarshal([]byte("interval: soon\n"), &doc); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}
}
