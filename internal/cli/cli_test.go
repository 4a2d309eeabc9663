package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestChoose(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"first", "1\n", 0, false},
		{"last", "3\n", 2, false},
		{"retry after invalid", "9\nabc\n2\n", 1, false},
		{"no trailing newline", "2", 1, false},
		{"eof", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)
			got, err := p.Choose("Pick one", []string{"a", "b", "c"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Choose() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Choose() = %d, want %d", got, tt.want)
			}
			if !strings.Contains(out.String(), "  2) b") {
				t.Errorf("options not printed:\n%s", out.String())
			}
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{850 * time.Millisecond, "850ms"},
		{12340 * time.Millisecond, "12.3s"},
		{75 * time.Second, "1m15s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "62m03s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
