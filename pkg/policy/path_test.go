package policy

import (
	"testing"

	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
)

func compileTestConnector(t *testing.T, raw config.ConnectorConfig) *Connector {
	t.Helper()

	cfg := &config.Config{Connectors: map[string]config.ConnectorConfig{"test": raw}}
	config.ApplyDefaults(cfg)

	policies, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return policies["test"]
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/weather", "/weather"},
		{"/weather/", "/weather"},
		{"//weather", "/weather"},
		{"///weather//current", "/weather/current"},
		{"/%77eather", "/weather"},
		{"/weather%2Fcurrent", "/weather/current"},
		{"weather", "/weather"},
		{"/", "/"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathAllowed_Security(t *testing.T) {
	conn := compileTestConnector(t, config.ConnectorConfig{
		BaseURL:    "https://api.example.com",
		AllowPaths: []string{"^/weather$"},
	})

	allowed := []string{
		"/weather",
		"/weather/",  // trailing slash normalizes away
		"//weather",  // doubled slash collapses
		"/%77eather", // percent-encoding decodes before matching
	}
	for _, path := range allowed {
		if !conn.PathAllowed(path) {
			t.Errorf("PathAllowed(%q) = false, want true", path)
		}
	}

	rejected := []string{
		"/weather/../admin",    // traversal
		"/weather%2F..%2Fadmin", // encoded traversal
		"/weathers",            // not a full match
		"/weather/current",     // not a full match
		"/admin",
		"/",
	}
	for _, path := range rejected {
		if conn.PathAllowed(path) {
			t.Errorf("PathAllowed(%q) = true, want false", path)
		}
	}
}

func TestPathAllowed_MultiplePatterns(t *testing.T) {
	conn := compileTestConnector(t, config.ConnectorConfig{
		BaseURL:    "https://api.example.com",
		AllowPaths: []string{"^/current$", "^/forecast/[0-9]+$"},
	})

	if !conn.PathAllowed("/current") {
		t.Error("Expected /current to be allowed")
	}
	if !conn.PathAllowed("/forecast/5") {
		t.Error("Expected /forecast/5 to be allowed")
	}
	if conn.PathAllowed("/forecast/tomorrow") {
		t.Error("Expected /forecast/tomorrow to be rejected")
	}
}

func TestPathAllowed_UnanchoredPatternStillFullMatch(t *testing.T) {
	// A sloppy pattern without anchors must not become a substring match.
	conn := compileTestConnector(t, config.ConnectorConfig{
		BaseURL:    "https://api.example.com",
		AllowPaths: []string{"/weather"},
	})

	if conn.PathAllowed("/weather/hidden") {
		t.Error("Unanchored pattern matched a longer path")
	}
	if !conn.PathAllowed("/weather") {
		t.Error("Expected exact path to match")
	}
}
