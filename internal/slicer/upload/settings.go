package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"printum/internal/slicer/engine"
	appErr "printum/pkg/errors"
)

var errNotObject = errors.New("settings must be a JSON object")

// ParseSettings decodes the "settings" form field: a JSON object of scalar values, or a
// JSON string holding such an object. Keys keep their document order; a repeated key
// takes the later value in the earlier position. Strings pass through, numbers use their
// shortest decimal form, booleans become "true" or "false" and nulls are dropped.
// Empty setting names are rejected. An empty field yields no settings.
func ParseSettings(raw string) ([]engine.Setting, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	settings, err := decodeSettings(raw, true)
	if err != nil {
		return nil, appErr.New(appErr.InvalidSettings).WithDetail("reason", err.Error())
	}
	return settings, nil
}

func decodeSettings(raw string, allowString bool) ([]engine.Setting, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	var out []engine.Setting
	switch t := tok.(type) {
	case string:
		if !allowString {
			return nil, errNotObject
		}
		out, err = decodeSettings(t, false)
	case json.Delim:
		if t != '{' {
			return nil, errNotObject
		}
		out, err = decodeObject(dec)
	default:
		return nil, errNotObject
	}
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after settings object")
		}
		return nil, err
	}
	return out, nil
}

func decodeObject(dec *json.Decoder) ([]engine.Setting, error) {
	type entry struct {
		value string
		null  bool
	}
	var keys []string
	values := make(map[string]entry)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}
		if key == "" {
			return nil, errors.New("setting names must not be empty")
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		var e entry
		switch v := valTok.(type) {
		case string:
			e.value = v
		case json.Number:
			e.value, err = formatNumber(v)
			if err != nil {
				return nil, err
			}
		case bool:
			e.value = strconv.FormatBool(v)
		case nil:
			e.null = true
		default:
			return nil, fmt.Errorf("setting %q must be a string, number or boolean", key)
		}

		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = e
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	out := make([]engine.Setting, 0, len(keys))
	for _, k := range keys {
		if e := values[k]; !e.null {
			out = append(out, engine.Setting{Key: k, Value: e.value})
		}
	}
	return out, nil
}

func formatNumber(n json.Number) (string, error) {
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("invalid number %s: %w", n, err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
