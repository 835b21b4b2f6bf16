// Package state reads and writes plan snapshots as JSON or YAML documents.
package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/thruflo/plantree/internal/plan"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot encoding.
type Format string

// Supported snapshot encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmptySnapshot is returned when decoding a document with no content.
var ErrEmptySnapshot = errors.New("snapshot is empty")

// ParseFormat converts a format name such as "yml" into a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported snapshot format: %q", name)
}

// FormatForPath picks a Format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Encode writes node to w in the given format.
func Encode(w io.Writer, node *plan.TaskNode, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(node); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported snapshot format: %q", f)
}

// Decode reads a single snapshot from r. Unknown fields are rejected so that
// typos in hand-written files surface instead of being dropped.
func Decode(r io.Reader, f Format) (*plan.TaskNode, error) {
	var node plan.TaskNode

	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmptySnapshot
			}
			return nil, fmt.Errorf("failed to parse snapshot: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmptySnapshot
			}
			return nil, fmt.Errorf("failed to parse snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %q", f)
	}

	return &node, nil
}

// Marshal returns node encoded in the given format.
func Marshal(node *plan.TaskNode, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, node, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadSnapshot reads a snapshot file, choosing the format by extension.
func LoadSnapshot(path string) (*plan.TaskNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(bytes.NewReader(data), FormatForPath(path))
}
