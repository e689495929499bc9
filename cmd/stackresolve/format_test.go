package main

import (
	"strings"
	"testing"

	"stackresolve/internal/language"
	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func sampleResolve() *resolver.ResolveResponse {
	parsed := &stacktrace.ParsedStackTrace{
		Header:   strp("Error: boom"),
		Language: language.JavaScript,
		Lines: []stacktrace.Frame{
			{Method: strp("handler"), FileFullPath: strp("/srv/app/src/server.js"), Line: intp(3), Column: intp(9)},
			{Method: strp("missing"), FileFullPath: strp("/srv/app/src/gone.js"), Line: intp(1)},
		},
	}
	resolved := &stacktrace.ParsedStackTrace{
		Header:   strp("Error: boom"),
		Language: language.JavaScript,
		Lines: []stacktrace.Frame{
			{
				Method:           strp("handler"),
				FileFullPath:     strp("/home/dev/shop/src/server.js"),
				FileRelativePath: strp("src/server.js"),
				Line:             intp(5),
				Column:           intp(9),
				Symbol:           &stacktrace.Symbol{Name: "handler", Kind: "function", StartLine: 3, EndLine: 6},
			},
			{
				Method:       strp("missing"),
				FileFullPath: strp("/srv/app/src/gone.js"),
				Error:        strp("Unable to find matching file for path suffix /srv/app/src/gone.js"),
			},
		},
	}
	return &resolver.ResolveResponse{
		TraceID:           "t-1",
		RepoID:            "r-1",
		ParsedStackInfo:   parsed,
		ResolvedStackInfo: resolved,
	}
}

func TestFormatResponse_JSON(t *testing.T) {
	resp := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	result, err := FormatResponse(resp, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"key": "value"`) {
		t.Error("JSON output missing expected key")
	}
	if !strings.Contains(result, `"num": 42`) {
		t.Error("JSON output missing expected number")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(map[string]string{"key": "value"}, "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatResponse_YAMLUsesJSONNames(t *testing.T) {
	result, err := FormatResponse(sampleResolve(), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"traceId: t-1", "fileRelativePath: src/server.js", "language: javascript"} {
		if !strings.Contains(result, want) {
			t.Errorf("YAML output missing %q:\n%s", want, result)
		}
	}
}

func TestFormatResponse_TOML(t *testing.T) {
	result, err := FormatResponse(sampleResolve(), FormatTOML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "traceId = ") || !strings.Contains(result, "t-1") {
		t.Errorf("TOML output missing traceId:\n%s", result)
	}

	// A bare list is wrapped, since a TOML document must be a table.
	result, err = FormatResponse([]string{"a", "b"}, FormatTOML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(result, "result = ") {
		t.Errorf("expected wrapped result, got %q", result)
	}
}

func TestFormatHuman_Resolve(t *testing.T) {
	colorEnabled = false

	result, err := FormatResponse(sampleResolve(), FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(result, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), result)
	}
	if lines[0] != "Trace t-1  repo r-1" {
		t.Errorf("title = %q", lines[0])
	}
	if lines[2] != "  #0  handler  src/server.js:5:9  (was 3:9)  in function handler" {
		t.Errorf("frame 0 = %q", lines[2])
	}
	if !strings.Contains(lines[3], "Unable to find matching file") {
		t.Errorf("frame 1 = %q", lines[3])
	}
}

func TestFormatHuman_ResolveWarning(t *testing.T) {
	colorEnabled = false

	result, err := FormatResponse(&resolver.ResolveResponse{
		TraceID: "t-2",
		Warning: &resolver.Warning{Message: "Repo \"shop\" not found", HelpURL: "https://example.com"},
	}, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	want := "Trace t-2\n⚠ Repo \"shop\" not found\n  https://example.com"
	if result != want {
		t.Errorf("got %q, want %q", result, want)
	}
}

func TestFormatHuman_Position(t *testing.T) {
	colorEnabled = false

	tests := []struct {
		name string
		resp *resolver.PositionResponse
		want string
	}{
		{"line and column", &resolver.PositionResponse{Path: "/r/a.go", Line: intp(4), Column: intp(2)}, "/r/a.go:4:2"},
		{"line only", &resolver.PositionResponse{Path: "/r/a.go", Line: intp(4)}, "/r/a.go:4"},
		{"error", &resolver.PositionResponse{Error: "Unable to calculate diff from x to HEAD"}, "✗ Unable to calculate diff from x to HEAD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatResponse(tt.resp, FormatHuman)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatHuman_Parsed(t *testing.T) {
	colorEnabled = false

	result, err := FormatResponse(&stacktrace.ParsedStackTrace{
		Language:   language.Python,
		Lines:      []stacktrace.Frame{},
		ParseError: stacktrace.UnableToParse,
	}, FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	if result != "python\n✗ "+stacktrace.UnableToParse {
		t.Errorf("got %q", result)
	}
}
