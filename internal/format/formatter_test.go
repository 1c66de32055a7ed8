package format

import (
	"errors"
	"testing"

	"github.com/undefdev/spotblock/internal/domain"
)

// Icon maps carry lowercased keys, matching what config.Load produces.
var testIcons = map[string]string{
	"playing": "P",
	"paused":  "II",
	"stopped": "S",
}

func TestRenderDefaultFormat(t *testing.T) {
	f, err := New("{artist} – {title}", testIcons, false)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	got := f.Render(domain.StatusPlaying, "A, B", "T")
	if got != "A, B – T" {
		t.Errorf("expected %q, got %q", "A, B – T", got)
	}
}

func TestRenderFilters(t *testing.T) {
	tests := []struct {
		name     string
		template string
		status   domain.Status
		artist   string
		title    string
		expected string
	}{
		{
			name:     "upper",
			template: "{artist:upper}",
			artist:   "Queen",
			expected: "QUEEN",
		},
		{
			name:     "lower",
			template: "{title:lower}",
			title:    "Bohemian Rhapsody",
			expected: "bohemian rhapsody",
		},
		{
			name:     "capitalize",
			template: "{artist:capitalize}",
			artist:   "the WHO",
			expected: "The who",
		},
		{
			name:     "icon mapped status",
			template: "{status:icon}",
			status:   domain.StatusPaused,
			expected: "II",
		},
		{
			name:     "icon unmapped status",
			template: "{status:icon}",
			status:   domain.Status("Buffering"),
			expected: "?",
		},
		{
			name:     "bare status",
			template: "{status}",
			status:   domain.StatusStopped,
			expected: "Stopped",
		},
		{
			name:     "mixed literals and fields",
			template: "[{status:icon}] {artist} – {title:upper}",
			status:   domain.StatusPlaying,
			artist:   "A",
			title:    "t",
			expected: "[P] A – T",
		},
		{
			name:     "no placeholders",
			template: "just text",
			expected: "just text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.template, testIcons, false)
			if err != nil {
				t.Fatalf("unexpected compile error: %v", err)
			}
			if got := f.Render(tt.status, tt.artist, tt.title); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRenderIsPure(t *testing.T) {
	f, err := New("{status:icon} {artist} – {title}", testIcons, false)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	first := f.Render(domain.StatusPlaying, "A", "T")
	second := f.Render(domain.StatusPlaying, "A", "T")
	if first != second {
		t.Errorf("render retained state: %q then %q", first, second)
	}
}

func TestMarkupEscape(t *testing.T) {
	tests := []struct {
		name     string
		escape   bool
		artist   string
		expected string
	}{
		{
			name:     "enabled escapes ampersand",
			escape:   true,
			artist:   "Tom & Jerry",
			expected: "Tom &amp; Jerry – T",
		},
		{
			name:     "disabled leaves it alone",
			escape:   false,
			artist:   "Tom & Jerry",
			expected: "Tom & Jerry – T",
		},
		{
			name:     "enabled escapes angle brackets",
			escape:   true,
			artist:   "<b>loud</b>",
			expected: "&lt;b&gt;loud&lt;/b&gt; – T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New("{artist} – {title}", testIcons, tt.escape)
			if err != nil {
				t.Fatalf("unexpected compile error: %v", err)
			}
			if got := f.Render(domain.StatusPlaying, tt.artist, "T"); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"unknown field", "{album}"},
		{"unknown filter", "{title:bold}"},
		{"icon on non-status field", "{artist:icon}"},
		{"unclosed placeholder", "{artist – {title}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.template, testIcons, false)
			if err == nil {
				t.Fatalf("expected compile error for %q", tt.template)
			}
			var cfgErr *domain.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %T: %v", err, err)
			}
		})
	}
}
