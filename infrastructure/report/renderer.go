// Package report renders consolidation Results for people and programs.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/internal/domain"
	"github.com/ahrav/go-concord/internal/ports"
)

// Supported output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	_ ports.ResultRenderer = TableRenderer{}
	_ ports.ResultRenderer = JSONRenderer{}
	_ ports.ResultRenderer = YAMLRenderer{}
)

// Formats lists the supported output formats.
func Formats() []string { return []string{FormatTable, FormatJSON, FormatYAML} }

// New returns the renderer for format.
func New(format string) (ports.ResultRenderer, error) {
	switch format {
	case FormatTable, "":
		return TableRenderer{}, nil
	case FormatJSON:
		return JSONRenderer{Indent: "  "}, nil
	case FormatYAML:
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want one of %v)", ports.ErrUnsupportedFormat, format, Formats())
	}
}

// JSONRenderer writes a Result as a JSON document.
type JSONRenderer struct {
	// Indent, when set, pretty-prints the output.
	Indent string
}

// Format implements ports.ResultRenderer.
func (JSONRenderer) Format() string { return FormatJSON }

// Render implements ports.ResultRenderer.
func (j JSONRenderer) Render(w io.Writer, r *domain.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", j.Indent)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result as json: %w", err)
	}
	return nil
}

// YAMLRenderer writes a Result as a YAML document.
type YAMLRenderer struct{}

// Format implements ports.ResultRenderer.
func (YAMLRenderer) Format() string { return FormatYAML }

// Render implements ports.ResultRenderer.
func (YAMLRenderer) Render(w io.Writer, r *domain.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result as yaml: %w", err)
	}
	return enc.Close()
}
