package admin

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormErrors maps field names to their parse errors.
type FormErrors map[string]string

func (e FormErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e[name]
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// ParseForm converts string form values into a typed payload for entity.
// Unknown keys are ignored. Empty optional values are left out so an
// update does not overwrite them.
func ParseForm(entity EntitySpec, values map[string]string) (map[string]any, error) {
	payload := make(map[string]any)
	errs := FormErrors{}

	for _, f := range entity.Fields {
		raw, present := values[f.Name]
		raw = strings.TrimSpace(raw)
		if raw == "" {
			if f.Required {
				errs[f.Name] = f.Label + " is required"
			} else if present && f.Kind == KindText {
				payload[f.Name] = ""
			}
			continue
		}

		v, err := parseValue(f.Kind, raw)
		if err != nil {
			errs[f.Name] = fmt.Sprintf("%s must be a %s", f.Label, f.Kind)
			continue
		}
		payload[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return payload, nil
}

func parseValue(kind FieldKind, raw string) (any, error) {
	switch kind {
	case KindNumber:
		return strconv.ParseFloat(raw, 64)
	case KindInt:
		return strconv.Atoi(raw)
	case KindBool:
		switch strings.ToLower(raw) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		return strconv.ParseBool(raw)
	case KindList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

// FormValues renders a row's editable fields as form strings, the inverse
// of ParseForm.
func FormValues(entity EntitySpec, row Row) map[string]string {
	out := make(map[string]string, len(entity.Fields))
	for _, f := range entity.Fields {
		out[f.Name] = FormatCell(row[f.Name])
	}
	return out
}

// FormatCell renders a decoded JSON value for display.
func FormatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = FormatCell(e)
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
