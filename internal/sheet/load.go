package sheet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

// LoadDir reads every roster file (*.json, *.yaml, *.yml) in [dir] and
// returns the sheets sorted by UID. Subdirectories are not descended
// into.
func LoadDir(dir string) ([]*Sheet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading roster dir: %w", err)
	}

	var sheets []*Sheet
	for _, entry := range entries {
		if entry.IsDir() || !IsRosterFile(entry.Name()) {
			continue
		}
		s, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, s)
	}

	sort.Slice(sheets, func(i, j int) bool {
		return sheets[i].UID < sheets[j].UID
	})
	return sheets, nil
}

// LoadFile reads a single roster file. The whole document is the sheet
// body; the well-known top-level keys "uid", "name", "kind" and "tags"
// are lifted into the Sheet header. A missing uid falls back to a slug
// of the file name, so re-loading the same file always addresses the
// same vault entry.
func LoadFile(path string) (*Sheet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster file: %w", err)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported roster file %s", path)
	}

	data, ok := normalizeValue(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("roster file %s is not a mapping", path)
	}

	s := &Sheet{Data: data}
	s.UID = stringKey(data, "uid")
	s.Name = stringKey(data, "name")
	s.Kind = stringKey(data, "kind")
	if tags, ok := data["tags"].([]any); ok {
		for _, tag := range tags {
			if str, ok := tag.(string); ok {
				s.Tags = append(s.Tags, str)
			}
		}
	}

	if s.UID == "" {
		s.UID = Slug(filepath.Base(path))
	}
	if s.Name == "" {
		s.Name = s.UID
	}
	if s.Kind == "" {
		s.Kind = "character"
	}
	return s, nil
}

// IsRosterFile reports whether name has a roster file extension.
func IsRosterFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Slug derives a stable identifier from a file name.
func Slug(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}

// normalizeValue converts a decoded JSON/YAML tree into the canonical
// in-memory shape: string-keyed maps, []any sequences and float64
// numbers. The original sheets come from a JSON-native host, so every
// number adopts JSON semantics regardless of source format; this also
// keeps loaded sheets comparable with states restored from the vault's
// msgpack encoding.
func normalizeValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(structdiff.Record, len(value))
		for k, sub := range value {
			out[k] = normalizeValue(sub)
		}
		return out
	case map[any]any:
		out := make(structdiff.Record, len(value))
		for k, sub := range value {
			out[fmt.Sprint(k)] = normalizeValue(sub)
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = normalizeValue(item)
		}
		return out
	case int:
		return float64(value)
	case int64:
		return float64(value)
	case uint64:
		return float64(value)
	case float32:
		return float64(value)
	default:
		return value
	}
}

func stringKey(rec structdiff.Record, key string) string {
	if str, ok := rec[key].(string); ok {
		return str
	}
	return ""
}
