package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{"plain string", "hello", 100, "hello"},
		{"strips control characters", "he\x00llo", 100, "hello"},
		{"keeps newlines", "a\nb", 100, "a\nb"},
		{"truncates", "abcdefgh", 4, "abcd..."},
		{"empty", "", 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("SanitizeString(%q, %d) = %q, want %q", tt.input, tt.maxLength, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q, want empty", got)
	}
	if got := SanitizeError(errors.New("boom")); got != "boom" {
		t.Errorf("SanitizeError = %q, want boom", got)
	}
}

func TestSanitizeDataURI(t *testing.T) {
	t.Parallel()

	long := "data:image/png;base64," + strings.Repeat("A", 500)
	got := SanitizeDataURI(long)
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("preview lost the MIME prefix: %q", got)
	}
	if len(got) > dataURIPreviewLength+3 {
		t.Errorf("preview too long: %d bytes", len(got))
	}

	short := "data:image/png;base64,AA"
	if got := SanitizeDataURI(short); got != short {
		t.Errorf("short URIs should pass through, got %q", got)
	}
}
