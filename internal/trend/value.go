package trend

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is a plot value that may be absent. Absent values encode as JSON null.
type Value struct {
	Float float64
	Valid bool
}

// Null is the absent value.
var Null = Value{}

// Some returns a present value.
func Some(f float64) Value {
	return Value{Float: f, Valid: true}
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.Float, 'f', -1, 64)), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*v = Null
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

func nulls(n int) []Value {
	return make([]Value, n)
}
