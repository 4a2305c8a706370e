package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetByPath retrieves a config value by dot-notation path. Service entries
// are addressed by index, e.g. "services.0.params.addr".
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := toMap(cfg)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(path, ".")
	var current any = m
	for _, key := range parts {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("invalid list index: %s", key)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path. List elements cannot
// be created this way, only existing map keys set.
func SetByPath(cfg *Config, path string, value any) error {
	m, err := toMap(cfg)
	if err != nil {
		return err
	}

	parts := strings.Split(path, ".")
	if len(parts) == 0 || path == "" {
		return fmt.Errorf("empty path")
	}

	var current any = m
	for i := 0; i < len(parts)-1; i++ {
		switch v := current.(type) {
		case map[string]any:
			child, ok := v[parts[i]]
			if !ok {
				newMap := make(map[string]any)
				v[parts[i]] = newMap
				current = newMap
				continue
			}
			current = child
		case []any:
			idx, err := strconv.Atoi(parts[i])
			if err != nil || idx < 0 || idx >= len(v) {
				return fmt.Errorf("invalid list index: %s", parts[i])
			}
			current = v[idx]
		default:
			return fmt.Errorf("cannot traverse into %T at %s", current, parts[i])
		}
	}

	parent, ok := current.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set %s on %T", parts[len(parts)-1], current)
	}
	parent[parts[len(parts)-1]] = parseValue(value)

	newData, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(newData, cfg)
}

// parseValue tries to convert string values to appropriate Go types.
func parseValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return s
}

// sensitiveParams names service params whose values are masked by Sanitize.
var sensitiveParams = map[string]bool{
	"token":     true,
	"bot_token": true,
	"app_token": true,
}

// Sanitize returns a copy of the config with credential params masked.
func Sanitize(cfg *Config) *Config {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var copied Config
	if err := yaml.Unmarshal(data, &copied); err != nil {
		return cfg
	}

	for _, def := range copied.Services {
		for key, val := range def.Params {
			s, ok := val.(string)
			if ok && s != "" && sensitiveParams[key] {
				def.Params[key] = maskString(s)
			}
		}
	}
	return &copied
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns all config paths with their current values.
func ListPaths(cfg *Config) map[string]any {
	m, err := toMap(cfg)
	if err != nil {
		return nil
	}
	result := make(map[string]any)
	flatten("", m, result)
	return result
}

func flatten(prefix string, v any, result map[string]any) {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			flatten(path, child, result)
		}
	case []any:
		for i, child := range val {
			flatten(fmt.Sprintf("%s.%d", prefix, i), child, result)
		}
	default:
		result[prefix] = v
	}
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
