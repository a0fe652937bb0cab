package models

import (
	"fmt"
	"strconv"
)

// Sentinel is the literal written to history and export cells for a
// target no vantage point could reach. It is deliberately non-numeric
// so the frontend can branch on it without confusing total failure
// with a legitimately fast latency.
const Sentinel = "x"

// Value is one historical cell: a latency in milliseconds, or the down
// sentinel when OK is false. The zero Value is the sentinel.
type Value struct {
	OK bool
	Ms float64
}

// Latency builds a numeric cell value.
func Latency(ms float64) Value {
	return Value{OK: true, Ms: ms}
}

// String renders the cell as it appears in CSV and export files.
func (v Value) String() string {
	if !v.OK {
		return Sentinel
	}
	return strconv.FormatFloat(v.Ms, 'f', -1, 64)
}

// ParseValue reads a cell back from its textual form. Empty cells and
// the sentinel both decode to a down value.
func ParseValue(s string) (Value, error) {
	if s == "" || s == Sentinel {
		return Value{}, nil
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("cell %q: %w", s, err)
	}
	return Value{OK: true, Ms: ms}, nil
}
