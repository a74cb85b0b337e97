// Package coerce converts raw cell values into canonical typed values.
// Every function is pure and lenient: unparseable input resolves to nil,
// never to an error. Errors are reserved for structural violations higher up.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sentinel spellings that mean "no value" in exported spreadsheets.
func isNullSentinel(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "nat", "none", "null":
		return true
	}
	return false
}

// dateLayouts is tried in order with a day-first locale bias: Brazilian
// sources write 31/12/2023, so dd/mm layouts come before ISO forms.
var dateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timer is the conversion hook for already-parsed timestamp-like values
// (loader-specific wrappers that expose their instant).
type Timer interface {
	Time() time.Time
}

// ToTime coerces a raw value to a timestamp, or nil.
func ToTime(v any) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		tt := *t
		return &tt
	case Timer:
		tt := t.Time()
		if tt.IsZero() {
			return nil
		}
		return &tt
	}

	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" || isNullSentinel(s) {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// normalizeDecimal rewrites locale-formatted numbers to Go float syntax.
// "1.234,56" (one comma, dots as thousands separators) becomes "1234.56";
// otherwise a lone comma is treated as the decimal point.
func normalizeDecimal(s string) string {
	if strings.Count(s, ",") == 1 && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	return strings.ReplaceAll(s, ",", ".")
}

// ToFloat coerces a raw value to a finite float, or nil.
func ToFloat(v any) *float64 {
	switch f := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(f)
	case float32:
		return finite(float64(f))
	case int:
		return finite(float64(f))
	case int32:
		return finite(float64(f))
	case int64:
		return finite(float64(f))
	}

	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" || isNullSentinel(s) {
		return nil
	}
	f, err := strconv.ParseFloat(normalizeDecimal(s), 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ToInt applies the float normalization and truncates toward zero.
func ToInt(v any) *int64 {
	f := ToFloat(v)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

// ToText coerces a raw value to a trimmed string truncated to maxLen runes,
// or nil when the value is empty or a null sentinel.
func ToText(v any, maxLen int) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" || isNullSentinel(s) {
		return nil
	}
	if r := []rune(s); len(r) > maxLen {
		s = string(r[:maxLen])
	}
	return &s
}

// ToUF uppercases, trims and truncates a state code to two characters.
func ToUF(v any) *string {
	s := ToText(v, 2)
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}
