// Package calendar holds the small integer-valued calendar units used by
// recurrence rules: hours, minutes, days of month and week, and months.
//
// Every unit wraps BoundedInt, an integer that may be absent. Parsing is
// total: malformed text never fails, it yields an absent value. Raw
// out-of-range integers are kept so they survive a JSON round trip; the
// unit's IsValid reports whether the value is usable.
package calendar

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
)

// BoundedInt is an optional integer. The zero value is absent.
type BoundedInt struct {
	value   int
	present bool
}

// NewBoundedInt wraps a present integer.
func NewBoundedInt(v int) BoundedInt {
	return BoundedInt{value: v, present: true}
}

// NoInt returns the absent value.
func NoInt() BoundedInt {
	return BoundedInt{}
}

// IntPtr converts a nullable int pointer.
func IntPtr(p *int) BoundedInt {
	if p == nil {
		return NoInt()
	}
	return NewBoundedInt(*p)
}

// Value returns the integer and whether it is present.
func (b BoundedInt) Value() (int, bool) {
	return b.value, b.present
}

// ValueOr returns the integer, or def when absent.
func (b BoundedInt) ValueOr(def int) int {
	if !b.present {
		return def
	}
	return b.value
}

func (b BoundedInt) IsPresent() bool {
	return b.present
}

// Is reports whether the value is present and satisfies pred.
func (b BoundedInt) Is(pred func(int) bool) bool {
	return b.present && pred(b.value)
}

// Ptr returns a pointer to a copy of the value, or nil when absent.
func (b BoundedInt) Ptr() *int {
	if !b.present {
		return nil
	}
	v := b.value
	return &v
}

// WithinRange clamps a present value into [min, max]. Absent stays absent.
func (b BoundedInt) WithinRange(min, max int) BoundedInt {
	if !b.present {
		return b
	}
	v := b.value
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return NewBoundedInt(v)
}

// Equal reports whether both values are absent, or both present and equal.
func (b BoundedInt) Equal(other BoundedInt) bool {
	if b.present != other.present {
		return false
	}
	return !b.present || b.value == other.value
}

func (b BoundedInt) String() string {
	if !b.present {
		return ""
	}
	return strconv.Itoa(b.value)
}

// ParseBoundedInt reads the leading integer of text, ignoring surrounding
// whitespace and any trailing non-digit characters. Text without a leading
// integer yields an absent value.
func ParseBoundedInt(text string) BoundedInt {
	s := strings.TrimSpace(text)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return NoInt()
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return NoInt()
	}
	return NewBoundedInt(n)
}

// ParseBoundedIntWithDefault is ParseBoundedInt with def substituted for an
// absent result.
func ParseBoundedIntWithDefault(text string, def int) BoundedInt {
	parsed := ParseBoundedInt(text)
	if !parsed.present {
		return NewBoundedInt(def)
	}
	return parsed
}

var errNotANumber = errors.New("calendar: expected a JSON number or null")

func (b BoundedInt) MarshalJSON() ([]byte, error) {
	if !b.present {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(b.value)), nil
}

// UnmarshalJSON accepts null or a number. Numbers with a fractional part
// decode as absent.
func (b *BoundedInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = NoInt()
		return nil
	}
	if n, err := strconv.Atoi(string(data)); err == nil {
		*b = NewBoundedInt(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return errNotANumber
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		*b = NoInt()
		return nil
	}
	*b = NewBoundedInt(int(f))
	return nil
}
