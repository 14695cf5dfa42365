package presets

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// object is a decoded JSON object whose member values are still raw
type object map[string]json.RawMessage

var nullLiteral = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), nullLiteral)
}

// decodeObject decodes raw as a JSON object. null is not an object.
func decodeObject(raw json.RawMessage) (object, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, fmt.Errorf("expected object: %w", ErrWrongType)
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("expected object: %w", ErrWrongType)
	}
	return o, nil
}

// lookup returns a member value, treating an explicit null as absent
func (o object) lookup(key string) (json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

func decodeString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", fmt.Errorf("expected string, got null: %w", ErrWrongType)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string: %w", ErrWrongType)
	}
	return s, nil
}

// decodeStringMap reads a JSON object whose values are all strings
func decodeStringMap(raw json.RawMessage) (map[string]string, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(o))
	for k, v := range o {
		s, err := decodeString(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		m[k] = s
	}
	return m, nil
}

// decodeList reads a JSON array, applying transform to every element.
// The first failing element fails the whole list.
func decodeList[T any](raw json.RawMessage, transform func(json.RawMessage) (T, error)) ([]T, error) {
	if isNull(raw) {
		return nil, fmt.Errorf("expected array, got null: %w", ErrWrongType)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected array: %w", ErrWrongType)
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := transform(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (o object) requiredStringMap(key string) (map[string]string, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrMissingField)
	}
	m, err := decodeStringMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", key, err)
	}
	return m, nil
}

func (o object) requiredString(key string) (string, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrMissingField)
	}
	s, err := decodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%q: %w", key, err)
	}
	return s, nil
}

func (o object) optString(key, def string) (string, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	s, err := decodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%q: %w", key, err)
	}
	return s, nil
}

func (o object) optBool(key string, def bool) (bool, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("%q: expected bool: %w", key, ErrWrongType)
	}
	return b, nil
}

func (o object) optFloat(key string, def float64) (float64, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%q: expected number: %w", key, ErrWrongType)
	}
	return f, nil
}

// optObject returns the member as an object, or ok=false when absent
func (o object) optObject(key string) (object, bool, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return nil, false, nil
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%q: %w", key, err)
	}
	return obj, true, nil
}

// optStringMap returns the member as a string map, or ok=false when absent
func (o object) optStringMap(key string) (map[string]string, bool, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return nil, false, nil
	}
	m, err := decodeStringMap(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%q: %w", key, err)
	}
	return m, true, nil
}

// optList decodes an optional array member; absent yields an empty list
func optList[T any](o object, key string, transform func(json.RawMessage) (T, error)) ([]T, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return []T{}, nil
	}
	list, err := decodeList(raw, transform)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", key, err)
	}
	return list, nil
}

func requiredList[T any](o object, key string, transform func(json.RawMessage) (T, error)) ([]T, error) {
	raw, ok := o.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrMissingField)
	}
	list, err := decodeList(raw, transform)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", key, err)
	}
	return list, nil
}
