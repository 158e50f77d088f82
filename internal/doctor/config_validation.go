package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/openpcli/pcli-setup/internal/config"
)

type configUnknownKeyDetail struct {
	Path       string
	Allowed    []string
	Suggestion string
}

type configSchemaNode struct {
	children   map[string]*configSchemaNode
	arrayChild *configSchemaNode
}

var (
	configSchemaOnce sync.Once
	configSchemaRoot *configSchemaNode
)

// summarizeUnknownKeys returns a compact summary suitable for single-line
// check output.
func summarizeUnknownKeys(details []configUnknownKeyDetail) string {
	if len(details) == 0 {
		return "unrecognized config keys"
	}
	paths := make([]string, 0, len(details))
	for _, detail := range details {
		paths = append(paths, detail.Path)
	}
	sort.Strings(paths)
	return fmt.Sprintf("unrecognized config keys: %s", strings.Join(paths, ", "))
}

// formatUnknownKeyRecommendation renders a multi-line recommendation for
// unknown keys.
func formatUnknownKeyRecommendation(configPath string, details []configUnknownKeyDetail) string {
	if len(details) == 0 {
		return ""
	}
	lines := []string{
		"Unrecognized config keys are not part of this release's schema.",
		fmt.Sprintf("Edit %s to remove or rename them.", configPath),
		"",
		"Detected keys:",
	}
	for _, detail := range details {
		line := fmt.Sprintf("- %s", detail.Path)
		if len(detail.Allowed) > 0 {
			line = fmt.Sprintf("%s (allowed keys: %s)", line, strings.Join(detail.Allowed, ", "))
		} else {
			line = fmt.Sprintf("%s (no nested keys are allowed here)", line)
		}
		if detail.Suggestion != "" {
			line = fmt.Sprintf("%s (did you mean %s?)", line, detail.Suggestion)
		}
		lines = append(lines, line)
	}
	lines = append(lines,
		"",
		"Fix options:",
		"1) Remove the unknown keys above.",
		"2) Delete the file to fall back to built-in defaults.",
	)
	return strings.Join(lines, "\n")
}

// configUnknownKeys returns detected unknown config keys using the current
// schema.
func configUnknownKeys(configPath string) ([]configUnknownKeyDetail, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var details []configUnknownKeyDetail
	findUnknownConfigKeys(raw, configSchema(), "", &details)
	sort.Slice(details, func(i, j int) bool {
		return details[i].Path < details[j].Path
	})
	return details, nil
}

// configSchema builds and caches the schema derived from config.Config.
func configSchema() *configSchemaNode {
	configSchemaOnce.Do(func() {
		configSchemaRoot = buildSchema(reflect.TypeOf(config.Config{}))
	})
	return configSchemaRoot
}

// buildSchema constructs a schema tree from a reflected type using toml tags.
func buildSchema(t reflect.Type) *configSchemaNode {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		node := &configSchemaNode{children: make(map[string]*configSchemaNode)}
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			tag := strings.TrimSpace(field.Tag.Get("toml"))
			if tag == "" || tag == "-" {
				continue
			}
			key := strings.Split(tag, ",")[0]
			if key == "" {
				continue
			}
			node.children[key] = buildSchema(field.Type)
		}
		return node
	case reflect.Slice, reflect.Array:
		return &configSchemaNode{arrayChild: buildSchema(t.Elem())}
	default:
		return &configSchemaNode{}
	}
}

// findUnknownConfigKeys populates details with any keys raw holds that the
// schema does not.
func findUnknownConfigKeys(raw any, schema *configSchemaNode, path string, details *[]configUnknownKeyDetail) {
	if schema == nil || raw == nil {
		return
	}
	switch typed := raw.(type) {
	case map[string]any:
		allowed := schema.allowedKeys()
		for key, value := range typed {
			child, ok := schema.children[key]
			if !ok {
				*details = append(*details, configUnknownKeyDetail{
					Path:       joinConfigPath(path, key),
					Allowed:    allowed,
					Suggestion: suggestKeyRename(key, schema, path),
				})
				continue
			}
			if child.arrayChild != nil {
				if list, ok := value.([]any); ok {
					for i, item := range list {
						findUnknownConfigKeys(item, child.arrayChild, fmt.Sprintf("%s[%d]", joinConfigPath(path, key), i), details)
					}
				}
				continue
			}
			if len(child.children) > 0 {
				findUnknownConfigKeys(value, child, joinConfigPath(path, key), details)
			}
		}
	case []any:
		if schema.arrayChild == nil {
			return
		}
		for i, item := range typed {
			findUnknownConfigKeys(item, schema.arrayChild, fmt.Sprintf("%s[%d]", path, i), details)
		}
	}
}

func (n *configSchemaNode) allowedKeys() []string {
	if n == nil || len(n.children) == 0 {
		return nil
	}
	keys := make([]string, 0, len(n.children))
	for key := range n.children {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func joinConfigPath(path string, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// suggestKeyRename attempts to map an unknown key to a known key in the same
// schema scope.
func suggestKeyRename(key string, schema *configSchemaNode, path string) string {
	if schema == nil || len(schema.children) == 0 {
		return ""
	}
	for allowed := range schema.children {
		if strings.EqualFold(key, allowed) {
			return joinConfigPath(path, allowed)
		}
	}
	normalized := strings.ReplaceAll(strings.ToLower(key), "-", "_")
	if normalized != key {
		if _, ok := schema.children[normalized]; ok {
			return joinConfigPath(path, normalized)
		}
	}
	return ""
}
