package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Endpoints - статическое отображение имени функции в URL (func2url).
type Endpoints map[string]string

// LoadEndpoints читает YAML или JSON (по расширению файла).
func LoadEndpoints(path string) (Endpoints, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints: %w", err)
	}
	return ParseEndpoints(raw, filepath.Ext(path))
}

func ParseEndpoints(raw []byte, ext string) (Endpoints, error) {
	out := Endpoints{}
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("parse endpoints json: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("parse endpoints yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("endpoints: unsupported format %q", ext)
	}
	for k, v := range out {
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func (e Endpoints) Resolve(name string) (string, error) {
	u, ok := e[name]
	if !ok || u == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}
	return u, nil
}
