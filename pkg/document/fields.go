package document

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// record is one decoded JSON object. Values stay raw until a lookup asks
// for a specific type.
type record map[string]json.RawMessage

func decodeRecord(raw json.RawMessage) (record, bool) {
	var out record
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

func (r record) present(key string) (json.RawMessage, bool) {
	value, ok := r[key]
	if !ok {
		return nil, false
	}
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}
	return value, true
}

// firstString returns the first candidate holding a non-empty string.
func (r record) firstString(keys ...string) (string, bool) {
	for _, key := range keys {
		raw, ok := r.present(key)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String(), true
		}
	}
	return "", false
}

// firstDecimal returns the first candidate holding a number or a numeric
// string.
func (r record) firstDecimal(keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		raw, ok := r.present(key)
		if !ok {
			continue
		}
		if d, ok := parseDecimal(raw); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

func (r record) firstRecord(keys ...string) (record, bool) {
	for _, key := range keys {
		raw, ok := r.present(key)
		if !ok {
			continue
		}
		if nested, ok := decodeRecord(raw); ok {
			return nested, true
		}
	}
	return nil, false
}

// array decodes key as a JSON array; ok is false unless it holds at least
// one element.
func (r record) array(key string) ([]json.RawMessage, bool) {
	raw, ok := r.present(key)
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil, false
	}
	return items, true
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		return d, err == nil
	}
	return decimal.Zero, false
}
