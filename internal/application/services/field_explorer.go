package services

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"finboard-service/internal/domain/entities"
)

const maxSampleLength = 80

// ExtractFields flattens a decoded JSON document into dotted field paths.
// A top level array is described by its first element; nested arrays use an
// index suffix such as "items[0].price".
func ExtractFields(value any) []entities.FieldInfo {
	var fields []entities.FieldInfo
	if arr, ok := value.([]any); ok {
		if len(arr) == 0 {
			return fields
		}
		value = arr[0]
	}
	if obj, ok := value.(map[string]any); ok {
		fields = walkObject(fields, "", obj)
	}
	return fields
}

func walkObject(fields []entities.FieldInfo, prefix string, obj map[string]any) []entities.FieldInfo {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		value := obj[key]
		fields = append(fields, entities.FieldInfo{
			Name:  path,
			Type:  fieldType(value),
			Value: sample(value),
		})

		switch v := value.(type) {
		case map[string]any:
			fields = walkObject(fields, path, v)
		case []any:
			if len(v) > 0 {
				if first, ok := v[0].(map[string]any); ok {
					fields = walkObject(fields, path+"[0]", first)
				}
			}
		}
	}
	return fields
}

func fieldType(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func sample(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return truncate(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return truncate(string(raw))
	}
}

func truncate(s string) string {
	if len(s) <= maxSampleLength {
		return s
	}
	return s[:maxSampleLength] + "..."
}

// GetNestedValue resolves a dotted path such as "data.rates.BTC" against a
// decoded JSON value. Array segments accept a numeric index. Missing paths
// resolve to nil.
func GetNestedValue(obj any, path string) any {
	if path == "" {
		return obj
	}
	current := obj
	for _, segment := range splitPath(path) {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}
	return current
}

// splitPath turns "a.b[0].c" into [a b 0 c]
func splitPath(path string) []string {
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TransformDataForWidget projects every record of data onto displayFields.
// Non array input yields an empty result.
func TransformDataForWidget(data any, displayFields []string) []map[string]any {
	records, ok := toRecords(data)
	if !ok {
		return []map[string]any{}
	}

	out := make([]map[string]any, 0, len(records))
	for _, item := range records {
		row := make(map[string]any, len(displayFields))
		for _, field := range displayFields {
			row[field] = GetNestedValue(item, field)
		}
		out = append(out, row)
	}
	return out
}

// toRecords converts typed slices (e.g. []entities.StockQuote) into generic
// JSON values so that field paths use their json names.
func toRecords(data any) ([]any, bool) {
	if arr, ok := data.([]any); ok {
		return arr, true
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// FormatLargeNumber abbreviates n with a T/B/M/K suffix and one decimal
func FormatLargeNumber(n float64) string {
	switch {
	case n >= 1e12:
		return strconv.FormatFloat(n/1e12, 'f', 1, 64) + "T"
	case n >= 1e9:
		return strconv.FormatFloat(n/1e9, 'f', 1, 64) + "B"
	case n >= 1e6:
		return strconv.FormatFloat(n/1e6, 'f', 1, 64) + "M"
	case n >= 1e3:
		return strconv.FormatFloat(n/1e3, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
}
