package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FlexNumber decodes a JSON number or numeric string without failing the
// surrounding document. Set reports that the field was present and not
// null; Valid reports that it parsed as a number.
type FlexNumber struct {
	Value float64
	Set   bool
	Valid bool
}

// Number returns a present, valid FlexNumber
func Number(v float64) FlexNumber {
	return FlexNumber{Value: v, Set: true, Valid: true}
}

// NumberFrom converts an optional float, nil meaning absent
func NumberFrom(v *float64) FlexNumber {
	if v == nil {
		return FlexNumber{}
	}
	return Number(*v)
}

// Finite reports whether the value is present, numeric and finite
func (n FlexNumber) Finite() bool {
	return n.Valid && !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	*n = FlexNumber{}
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	n.Set = true

	text := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}

	// strconv accepts "Inf" and "NaN"; callers reject them via Finite.
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	n.Value, n.Valid = v, true
	return nil
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if !n.Finite() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// FlexString decodes a JSON string or number as text. Any other JSON
// value decodes to the empty string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	*s = ""
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil
	}
	switch {
	case raw[0] == '"':
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			*s = FlexString(v)
		}
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		*s = FlexString(raw)
	}
	return nil
}
