package measurement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind classifies a record Value.
type Kind int

const (
	// KindNull is an unset value, e.g. a temperature that was not reported.
	KindNull Kind = iota
	// KindString is a text value such as a phase or a compound list.
	KindString
	// KindNumber is a numeric value. NaN marks a missing uncertainty.
	KindNumber
)

// String returns a string representation of the kind.
func (kind Kind) String() string {
	switch kind {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "unknown"
	}
}

// nanText is how NaN is written to JSON and CSV.
const nanText = "NaN"

// Value is one cell of a Record: null, a string, or a number.
// The zero Value is null.
type Value struct {
	kind   Kind
	text   string
	number float64
}

// Null returns the unset value.
func Null() Value {
	return Value{}
}

// String returns a text value.
func String(text string) Value {
	return Value{kind: KindString, text: text}
}

// Number returns a numeric value.
func Number(number float64) Value {
	return Value{kind: KindNumber, number: number}
}

// NaN returns the not-a-number sentinel used for missing uncertainties.
func NaN() Value {
	return Number(math.NaN())
}

// Kind returns the kind of the value.
func (value Value) Kind() Kind {
	return value.kind
}

// IsNull reports whether the value is unset.
func (value Value) IsNull() bool {
	return value.kind == KindNull
}

// IsNaN reports whether the value is the not-a-number sentinel.
func (value Value) IsNaN() bool {
	return value.kind == KindNumber && math.IsNaN(value.number)
}

// Text returns the string payload and whether the value is a string.
func (value Value) Text() (string, bool) {
	return value.text, value.kind == KindString
}

// Float returns the numeric payload and whether the value is a number.
func (value Value) Float() (float64, bool) {
	return value.number, value.kind == KindNumber
}

// String formats the value for tabular output: null is empty, NaN is "NaN",
// numbers use the shortest representation that round-trips.
func (value Value) String() string {
	switch value.kind {
	case KindString:
		return value.text
	case KindNumber:
		if math.IsNaN(value.number) {
			return nanText
		}
		return strconv.FormatFloat(value.number, 'g', -1, 64)
	default:
		return ""
	}
}

// Equal reports whether two values are identical. NaN equals NaN.
func (value Value) Equal(other Value) bool {
	if value.kind != other.kind {
		return false
	}
	switch value.kind {
	case KindString:
		return value.text == other.text
	case KindNumber:
		if math.IsNaN(value.number) {
			return math.IsNaN(other.number)
		}
		return value.number == other.number
	default:
		return true
	}
}

// MarshalJSON encodes null as null and NaN as the string "NaN".
func (value Value) MarshalJSON() ([]byte, error) {
	switch value.kind {
	case KindString:
		return json.Marshal(value.text)
	case KindNumber:
		if math.IsNaN(value.number) {
			return json.Marshal(nanText)
		}
		if math.IsInf(value.number, 0) {
			return nil, fmt.Errorf("cannot encode infinite value")
		}
		return json.Marshal(value.number)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reverses MarshalJSON.
func (value *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*value = Null()
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		if text == nanText {
			*value = NaN()
		} else {
			*value = String(text)
		}
		return nil
	}

	var number float64
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("record value must be null, string, or number: %w", err)
	}
	*value = Number(number)
	return nil
}

// ParseCell converts a tabular cell back into a Value: empty is null,
// "NaN" and anything strconv accepts as a float are numbers, the rest text.
func ParseCell(cell string) Value {
	if cell == "" {
		return Null()
	}
	if cell == nanText {
		return NaN()
	}
	if number, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsInf(number, 0) && !math.IsNaN(number) {
		return Number(number)
	}
	return String(cell)
}
