package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat is how CLI commands print server responses.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// DefaultOutput is the format used until --output is parsed.
const DefaultOutput = OutputFormatYAML

var outputFormat = DefaultOutput

// ParseOutputFormat accepts "yaml", "yml" or "json", in any case.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return OutputFormatYAML, nil
	case "json":
		return OutputFormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want yaml or json)", s)
}

// SetOutputFormat sets the format used by Output.
func SetOutputFormat(format string) error {
	f, err := ParseOutputFormat(format)
	if err != nil {
		return err
	}
	outputFormat = f
	return nil
}

// GetOutputFormat returns the format used by Output.
func GetOutputFormat() OutputFormat {
	return outputFormat
}

// Encode writes data to w in format f.
func (f OutputFormat) Encode(w io.Writer, data any) error {
	switch f {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format: %s", f)
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return outputFormat.Encode(os.Stdout, data)
}

// OutputTo writes data to w in the given format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	return format.Encode(w, data)
}

// OutputToFile writes data to path, choosing the format from the extension.
// Unknown extensions get the configured format.
func OutputToFile(data any, path string) error {
	format, err := ParseOutputFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		format = outputFormat
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := format.Encode(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
