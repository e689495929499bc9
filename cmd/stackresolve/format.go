package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	toml "github.com/pelletier/go-toml/v2"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
	FormatYAML  OutputFormat = "yaml"
	FormatTOML  OutputFormat = "toml"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorDim    = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleOK      = lipgloss.NewStyle().Foreground(colorGreen)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
)

// colorEnabled is false when stdout is not a terminal, so piped output
// carries no escape codes.
var colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))

func paint(s lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return s.Render(text)
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatTOML:
		return formatTOML(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// toGeneric converts resp to maps and slices keyed by its JSON names so
// every format shares the same field names.
func toGeneric(resp interface{}) (interface{}, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return dropNulls(v), nil
}

func dropNulls(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if val == nil {
				delete(t, k)
				continue
			}
			t[k] = dropNulls(val)
		}
	case []interface{}:
		for i := range t {
			t[i] = dropNulls(t[i])
		}
	}
	return v
}

func formatYAML(resp interface{}) (string, error) {
	v, err := toGeneric(resp)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatTOML wraps non-table values in a "result" key, since a TOML
// document must be a table.
func formatTOML(resp interface{}) (string, error) {
	v, err := toGeneric(resp)
	if err != nil {
		return "", err
	}
	if _, ok := v.(map[string]interface{}); !ok {
		v = map[string]interface{}{"result": v}
	}
	data, err := toml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *stacktrace.ParsedStackTrace:
		return formatParsedHuman(v), nil
	case *resolver.ResolveResponse:
		return formatResolveHuman(v), nil
	case *resolver.PositionResponse:
		return formatPositionHuman(v), nil
	case *RepoListResponseCLI:
		return formatReposHuman(v), nil
	default:
		// For unknown types, fall back to YAML
		return formatYAML(resp)
	}
}

func formatParsedHuman(p *stacktrace.ParsedStackTrace) string {
	var b strings.Builder
	b.WriteString(paint(styleTitle, p.Language.String()))
	if p.Header != nil {
		b.WriteString("  " + *p.Header)
	}
	b.WriteString("\n")
	if p.ParseError != "" {
		b.WriteString(paint(styleError, "✗ "+p.ParseError) + "\n")
	}
	for i, f := range p.Lines {
		b.WriteString(frameLine(i, f, nil) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatResolveHuman(r *resolver.ResolveResponse) string {
	var b strings.Builder
	b.WriteString(paint(styleTitle, "Trace "+r.TraceID))
	if r.RepoID != "" {
		b.WriteString(paint(styleDim, "  repo "+r.RepoID))
	}
	b.WriteString("\n")

	if r.Warning != nil {
		b.WriteString(paint(styleWarning, "⚠ "+r.Warning.Message) + "\n")
		if r.Warning.HelpURL != "" {
			b.WriteString(paint(styleDim, "  "+r.Warning.HelpURL) + "\n")
		}
	}
	if r.Error != "" {
		b.WriteString(paint(styleError, "✗ "+r.Error) + "\n")
	}

	if r.ResolvedStackInfo != nil {
		resolved := r.ResolvedStackInfo
		if resolved.Header != nil {
			b.WriteString(*resolved.Header + "\n")
		}
		for i, f := range resolved.Lines {
			var original *stacktrace.Frame
			if r.ParsedStackInfo != nil && i < len(r.ParsedStackInfo.Lines) {
				original = &r.ParsedStackInfo.Lines[i]
			}
			b.WriteString(frameLine(i, f, original) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// frameLine renders one frame. When original is given and the position
// moved, the original position is shown as well.
func frameLine(i int, f stacktrace.Frame, original *stacktrace.Frame) string {
	method := stacktrace.UnknownFunction
	if f.Method != nil {
		method = *f.Method
	}
	prefix := fmt.Sprintf("  #%-2d %s", i, method)

	if f.Error != nil {
		loc := ""
		if f.FileFullPath != nil {
			loc = "  " + *f.FileFullPath
		}
		return prefix + paint(styleDim, loc) + "  " + paint(styleError, *f.Error)
	}

	loc := position(displayPath(f), f.Line, f.Column)
	line := prefix + "  " + paint(styleOK, loc)
	if original != nil && original.Line != nil && f.Line != nil && !samePosition(*original, f) {
		line += paint(styleDim, "  (was "+position("", original.Line, original.Column)+")")
	}
	if f.Symbol != nil {
		name := f.Symbol.Name
		if f.Symbol.Container != "" {
			name = f.Symbol.Container + "." + name
		}
		line += paint(styleDim, "  in "+f.Symbol.Kind+" "+name)
	}
	return line
}

func displayPath(f stacktrace.Frame) string {
	switch {
	case f.FileRelativePath != nil:
		return *f.FileRelativePath
	case f.FileFullPath != nil:
		return *f.FileFullPath
	default:
		return ""
	}
}

func position(path string, line, col *int) string {
	s := path
	if line != nil {
		s += fmt.Sprintf(":%d", *line)
		if col != nil {
			s += fmt.Sprintf(":%d", *col)
		}
	}
	return strings.TrimPrefix(s, ":")
}

func samePosition(a, b stacktrace.Frame) bool {
	if *a.Line != *b.Line {
		return false
	}
	if (a.Column == nil) != (b.Column == nil) {
		return false
	}
	return a.Column == nil || *a.Column == *b.Column
}

func formatPositionHuman(p *resolver.PositionResponse) string {
	if p.Error != "" {
		return paint(styleError, "✗ "+p.Error)
	}
	s := paint(styleOK, position(p.Path, p.Line, p.Column))
	if p.Symbol != nil {
		s += paint(styleDim, "  in "+p.Symbol.Kind+" "+p.Symbol.Name)
	}
	return s
}

func formatReposHuman(r *RepoListResponseCLI) string {
	if len(r.Repos) == 0 {
		return "No repositories registered.\nUse 'stackresolve repos add <path>' to register a work tree."
	}
	var b strings.Builder
	for _, repo := range r.Repos {
		state := paint(styleOK, string(repo.State))
		if repo.State != "valid" {
			state = paint(styleWarning, string(repo.State))
		}
		fmt.Fprintf(&b, "%s %s  %s\n", paint(styleTitle, fmt.Sprintf("%-20s", repo.Name)), state, paint(styleDim, repo.Path))
		if len(repo.Remotes) > 0 {
			fmt.Fprintf(&b, "%-20s %s\n", "", strings.Join(repo.Remotes, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
