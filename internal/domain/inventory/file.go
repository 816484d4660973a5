package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an inventory file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file name; anything that is not
// .yaml/.yml is treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses an inventory file. Both a full inventory object
// ({"items": [...]}) and a bare list of items are accepted.
func Decode(data []byte, f Format) (*Inventory, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Inventory{}, nil
	}
	var inv Inventory
	switch f {
	case FormatYAML:
		var items []Item
		if err := yaml.Unmarshal(data, &items); err == nil {
			inv.Items = items
			return &inv, nil
		}
		if err := yaml.Unmarshal(data, &inv); err != nil {
			return nil, fmt.Errorf("decode yaml inventory: %w", err)
		}
	default:
		if data[0] == '[' {
			if err := json.Unmarshal(data, &inv.Items); err != nil {
				return nil, fmt.Errorf("decode json inventory: %w", err)
			}
			return &inv, nil
		}
		if err := json.Unmarshal(data, &inv); err != nil {
			return nil, fmt.Errorf("decode json inventory: %w", err)
		}
	}
	return &inv, nil
}

// Encode serializes inv in the given format.
func Encode(inv *Inventory, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(inv); err != nil {
			return nil, fmt.Errorf("encode yaml inventory: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json inventory: %w", err)
		}
		return append(data, '\n'), nil
	}
}
