package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrNoElements is returned when a tree file contains no elements.
var ErrNoElements = errors.New("tree file has no elements")

// treeFile is the on-disk shape: either a bare element list or a document.
type treeFile struct {
	ID       string           `yaml:"id"`
	Elements []domain.Element `yaml:"elements"`
}

// ReadElements loads a tree from a YAML or JSON file.
// The file is either a list of elements or an object with an "elements" key.
func ReadElements(path string) ([]domain.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	elements, err := ParseElements(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return elements, nil
}

// ParseElements decodes tree file content. YAML being a superset of JSON, one decoder serves both.
func ParseElements(data []byte) ([]domain.Element, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, ErrNoElements
	}

	var elements []domain.Element
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		if err := node.Content[0].Decode(&elements); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var doc treeFile
		if err := node.Content[0].Decode(&doc); err != nil {
			return nil, err
		}
		elements = doc.Elements
	default:
		return nil, fmt.Errorf("unexpected top-level %s", kindName(node.Content[0].Kind))
	}

	if len(elements) == 0 {
		return nil, ErrNoElements
	}
	return elements, nil
}

// WriteElements writes elements to path in the format implied by its extension.
func WriteElements(path string, elements []domain.Element) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeElements(f, elements, strings.EqualFold(filepath.Ext(path), ".json")); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// EncodeElements writes elements as indented JSON, or YAML when asJSON is false.
func EncodeElements(w io.Writer, elements []domain.Element, asJSON bool) error {
	doc := struct {
		Elements []domain.Element `json:"elements" yaml:"elements"`
	}{Elements: elements}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "node"
}
