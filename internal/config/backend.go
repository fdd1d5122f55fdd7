package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ConfigBackend abstracts persistent config storage keyed by dotted names.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}

// FilePath returns the config file location: $USERPIPE_CONFIG if set,
// otherwise $XDG_CONFIG_HOME/userpipe/config.yaml.
func FilePath() string {
	if p := os.Getenv("USERPIPE_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "userpipe", "config.yaml")
}

type fileFormat int

const (
	formatYAML fileFormat = iota
	formatTOML
	formatJSON
)

func formatFor(path string) fileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML
	case ".json":
		return formatJSON
	default:
		return formatYAML
	}
}

// fileBackend keeps the config file's values flattened to dotted keys and
// writes them back nested, in the format implied by the file extension.
type fileBackend struct {
	path   string
	format fileFormat
	data   map[string]any
}

func newFileBackend(path string) *fileBackend {
	b := &fileBackend{path: path, format: formatFor(path), data: make(map[string]any)}
	b.load()
	return b
}

func (b *fileBackend) load() {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", b.path, err)
		}
		return
	}

	var tree map[string]any
	switch b.format {
	case formatTOML:
		err = toml.Unmarshal(raw, &tree)
	case formatJSON:
		err = json.Unmarshal(raw, &tree)
	default:
		err = yaml.Unmarshal(raw, &tree)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", b.path, err)
		return
	}
	b.data = flatten(tree, "")
}

func (b *fileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tree := unflatten(b.data)
	var (
		out []byte
		err error
	)
	switch b.format {
	case formatTOML:
		out, err = toml.Marshal(tree)
	case formatJSON:
		out, err = json.MarshalIndent(tree, "", "  ")
	default:
		out, err = yaml.Marshal(tree)
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(b.path, out, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok || v == nil {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = fmt.Sprintf("%v", p)
		}
		return strings.Join(parts, ","), true, nil
	default:
		return fmt.Sprintf("%v", v), true, nil
	}
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch val := v.(type) {
	case int:
		return val, true, nil
	case int64:
		if val < math.MinInt || val > math.MaxInt {
			return 0, true, fmt.Errorf("value %d for %s is out of range", val, key)
		}
		return int(val), true, nil
	case uint64:
		if val > math.MaxInt {
			return 0, true, fmt.Errorf("value %d for %s is out of range", val, key)
		}
		return int(val), true, nil
	case float64:
		if val < math.MinInt || val > math.MaxInt || val != math.Trunc(val) {
			return 0, true, fmt.Errorf("value %v for %s is not a valid integer or is out of range", val, key)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("invalid type %T for %s", v, key)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return b.save()
}

func (b *fileBackend) Delete(key string) error {
	delete(b.data, key)
	return b.save()
}

// flatten converts nested maps to dotted keys: {"a": {"b": 1}} becomes
// {"a.b": 1}.
func flatten(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch nested := v.(type) {
		case map[string]any:
			for nk, nv := range flatten(nested, key) {
				out[nk] = nv
			}
		case map[any]any:
			conv := make(map[string]any, len(nested))
			for nk, nv := range nested {
				conv[fmt.Sprintf("%v", nk)] = nv
			}
			for nk, nv := range flatten(conv, key) {
				out[nk] = nv
			}
		default:
			out[key] = v
		}
	}
	return out
}

// unflatten is the inverse of flatten. Keys are processed in sorted order so
// a scalar never shadows a table of the same name nondeterministically.
func unflatten(m map[string]any) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any)
	for _, k := range keys {
		parts := strings.Split(k, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = m[k]
	}
	return out
}
