// Package configutil validates and decodes the free-form provider settings
// maps that appear under service, devices, and captions in the config file.
package configutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Schema names the keys a settings map may carry. Key matching ignores case,
// underscores, and hyphens so yaml authors can write api_key or apiKey.
type Schema struct {
	Required []string
	Optional []string
}

// ValidateSettings checks a settings map against a schema and reports every
// missing required key and every unrecognized key in one error.
func ValidateSettings(input map[string]any, schema Schema) error {
	allowed := make(map[string]struct{}, len(schema.Required)+len(schema.Optional))
	for _, k := range append(append([]string{}, schema.Required...), schema.Optional...) {
		allowed[normalizeKey(k)] = struct{}{}
	}

	var missing, unknown []string
	for _, k := range schema.Required {
		v, ok := lookupKey(input, k)
		if !ok || isBlank(v) {
			missing = append(missing, k)
		}
	}
	for k := range input {
		if _, ok := allowed[normalizeKey(k)]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(missing) == 0 && len(unknown) == 0 {
		return nil
	}

	sort.Strings(missing)
	sort.Strings(unknown)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unknown: "+strings.Join(unknown, ", "))
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// DecodeSettings decodes a settings map into a typed struct using the same
// relaxed key matching as ValidateSettings.
func DecodeSettings(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// RequireString rejects an empty value for a required config field, naming
// the field's dotted path in the error.
func RequireString(value, path string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", path)
	}
	return nil
}

func lookupKey(input map[string]any, key string) (any, bool) {
	want := normalizeKey(key)
	for k, v := range input {
		if normalizeKey(k) == want {
			return v, true
		}
	}
	return nil, false
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	return strings.ReplaceAll(value, "-", "")
}
