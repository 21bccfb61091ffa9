package adventure

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// Decode reads a document from r.
func Decode(r io.Reader, format Format) (*Adventure, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read adventure: %w", err)
	}
	return DecodeBytes(data, format)
}

// DecodeBytes parses a document and checks the structural invariants needed
// to start a playthrough. YAML is normalised to JSON first so both encodings
// share one schema.
func DecodeBytes(data []byte, format Format) (*Adventure, error) {
	if format == FormatYAML {
		var tree any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%w: failed to parse yaml: %v", ErrInvalidDocument, err)
		}
		converted, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to convert yaml: %v", ErrInvalidDocument, err)
		}
		data = converted
	}

	var a Adventure
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := a.Check(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Check verifies the structural invariants: a start scene id that resolves and
// scenes that carry ids. It also (re)builds the lookup index.
func (a *Adventure) Check() error {
	a.Index()
	if a.StartSceneID == "" {
		return fmt.Errorf("%w: startSceneId is required", ErrInvalidDocument)
	}
	if len(a.Scenes) == 0 {
		return fmt.Errorf("%w: no scenes defined", ErrInvalidDocument)
	}
	for i, s := range a.Scenes {
		if s.ID == "" {
			return fmt.Errorf("%w: scene %d has no id", ErrInvalidDocument, i)
		}
	}
	if !a.HasScene(a.StartSceneID) {
		return fmt.Errorf("%w: start scene %q not found", ErrInvalidDocument, a.StartSceneID)
	}
	return nil
}
