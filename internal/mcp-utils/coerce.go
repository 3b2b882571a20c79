// Package mcputils binds loosely typed MCP tool arguments onto request structs.
package mcputils

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ArgumentGetter is an interface for getting arguments from a request.
// mcp.CallToolRequest satisfies it.
type ArgumentGetter interface {
	GetArguments() map[string]any
}

// CoerceBindArguments decodes request arguments into target using the
// struct's json tags. Some MCP clients send every value as a string, so
// "true", "3" and JSON-encoded arrays are converted to the field's type.
func CoerceBindArguments[T any](request ArgumentGetter, target *T) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			jsonStringHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:  target,
		TagName: "json",
	})
	if err != nil {
		return err
	}

	return decoder.Decode(request.GetArguments())
}

// jsonStringHook parses string values as JSON when the target is a slice,
// map, struct, bool or number. Anything it cannot parse is passed through.
func jsonStringHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch kind := to.Kind(); {
	case kind == reflect.Slice:
		if looksLikeJSON(raw, '[', ']') {
			ptr := reflect.New(to)
			if err := json.Unmarshal([]byte(raw), ptr.Interface()); err == nil {
				return ptr.Elem().Interface(), nil
			}
		}

	case kind == reflect.Map || kind == reflect.Struct:
		if looksLikeJSON(raw, '{', '}') {
			var result any
			if err := json.Unmarshal([]byte(raw), &result); err == nil {
				return result, nil
			}
		}

	case kind == reflect.Bool:
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}

	case kind >= reflect.Int && kind <= reflect.Float64:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			return n, nil
		}
	}

	return data, nil
}

func looksLikeJSON(s string, open, close byte) bool {
	return len(s) >= 2 && s[0] == open && s[len(s)-1] == close
}
