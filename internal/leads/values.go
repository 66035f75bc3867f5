package leads

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// SubmittedValues maps a field key to its coerced string value. It decodes
// either an object {"key": value} or an array [{"fieldKey": k, "value": v}].
type SubmittedValues struct {
	keys   []string
	values map[string]string
	err    error
}

// NewSubmittedValues builds a value set from string pairs, keys sorted.
func NewSubmittedValues(pairs map[string]string) SubmittedValues {
	sv := SubmittedValues{values: make(map[string]string, len(pairs))}
	for k, v := range pairs {
		sv.keys = append(sv.keys, k)
		sv.values[k] = strings.TrimSpace(v)
	}
	sort.Strings(sv.keys)
	return sv
}

// Keys returns the submitted keys in submission order.
func (sv SubmittedValues) Keys() []string {
	return sv.keys
}

// Get returns the trimmed value for key.
func (sv SubmittedValues) Get(key string) (string, bool) {
	v, ok := sv.values[key]
	return v, ok
}

// Len reports how many keys were submitted.
func (sv SubmittedValues) Len() int {
	return len(sv.keys)
}

// Err reports a structural problem found while decoding, such as a blank or
// repeated key. JSON syntax errors are returned by UnmarshalJSON instead.
func (sv SubmittedValues) Err() error {
	return sv.err
}

type keyedValue struct {
	FieldKey *string         `json:"fieldKey"`
	Value    json.RawMessage `json:"value"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (sv *SubmittedValues) UnmarshalJSON(data []byte) error {
	*sv = SubmittedValues{values: make(map[string]string)}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if _, err := dec.Token(); err != nil {
			return err
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := tok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return err
			}
			sv.add(key, raw)
		}
		_, err := dec.Token()
		return err
	case '[':
		var items []keyedValue
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for _, item := range items {
			key := ""
			if item.FieldKey != nil {
				key = *item.FieldKey
			}
			sv.add(key, item.Value)
		}
		return nil
	default:
		sv.err = ErrInvalidValues
		return nil
	}
}

func (sv *SubmittedValues) add(key string, raw json.RawMessage) {
	if sv.err != nil {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		sv.err = ErrBlankFieldKey
		return
	}
	if _, dup := sv.values[key]; dup {
		sv.err = ErrDuplicateFieldKey.WithDetails(map[string]string{"fieldKey": key})
		return
	}
	value, err := CoerceValue(raw)
	if err != nil {
		sv.err = ErrInvalidValues.WithMessage("The value for %q could not be read", key)
		return
	}
	sv.keys = append(sv.keys, key)
	sv.values[key] = value
}

// CoerceValue converts a raw JSON value to the stored string form: strings
// as is, null or absent as "", numbers and booleans by their literal, arrays
// of scalars joined with ", ", objects as compact JSON. The result is trimmed.
func CoerceValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}
	switch trimmed[0] {
	case 'n':
		return "", nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			part, err := CoerceValue(item)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(parts, ", "), nil
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", err
		}
		return buf.String(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// FlexibleID decodes an id sent as a JSON number or a numeric string.
type FlexibleID struct {
	Value int64
	Set   bool
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	*id = FlexibleID{}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	id.Set = true

	raw := string(trimmed)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			id.Set = false
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	id.Value = n
	id.Valid = true
	return nil
}

// MarshalJSON renders the id as a number, or null when unset.
func (id FlexibleID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, id.Value, 10), nil
}

// Ptr returns the id or nil when absent.
func (id FlexibleID) Ptr() *int64 {
	if !id.Valid {
		return nil
	}
	v := id.Value
	return &v
}
