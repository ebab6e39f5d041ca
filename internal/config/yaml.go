package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "go.yaml.in/yaml/v3"
)

// coerceToJSONBytes turns any supported config format into a flat JSON object
// of string values so one strict decoder (DisallowUnknownFields) serves all of
// them.
//
// .json and .toml files are parsed as such. Anything else, including the
// extension-less default "config", is the native "KEY: value" per line
// format, which is valid YAML.
//
// Returns (jsonBytes, format, err).
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	var (
		raw    map[string]any
		format string
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = "json"
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, format, fmt.Errorf("json unmarshal: %w", err)
		}
	case ".toml":
		format = "toml"
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, format, fmt.Errorf("toml unmarshal: %w", err)
		}
	default:
		format = "yaml"
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, format, fmt.Errorf("yaml unmarshal: %w", err)
		}
	}

	flat, err := flattenScalars(raw)
	if err != nil {
		return nil, format, err
	}
	j, err := json.Marshal(flat)
	if err != nil {
		return nil, format, fmt.Errorf("%s->json marshal: %w", format, err)
	}
	return j, format, nil
}

// flattenScalars renders every value as text. Nested tables and lists are
// rejected: the key set is flat.
func flattenScalars(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, err := scalarString(in[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(x), nil
	case json.Number:
		return x.String(), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case map[string]any, map[any]any, []any:
		return "", fmt.Errorf("must be a single value, got %T", v)
	default:
		return fmt.Sprint(x), nil
	}
}
