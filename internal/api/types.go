package api

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Decimal is a money amount the backend sends as a string ("15000.00") or
// a number.
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*d = 0
		return nil
	}
	text := strings.Trim(string(data), `"`)
	if text == "" {
		*d = 0
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %s: %w", data, err)
	}
	*d = Decimal(v)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// String formats with two decimals, the backend's representation.
func (d Decimal) String() string {
	return strconv.FormatFloat(float64(d), 'f', 2, 64)
}

// Float64 returns the amount as a float.
func (d Decimal) Float64() float64 { return float64(d) }

// timeLayouts are the timestamp and date formats the backend emits.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ParseTime parses a backend timestamp or plain date.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
