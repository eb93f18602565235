package validation

import (
	"net/mail"
	"strings"
	"time"
)

// Violations maps a field path (e.g. "compulsoryItems[0].price") to an error code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies other into v, prefixing each key.
func (v Violations) Merge(prefix string, other Violations) {
	for k, code := range other {
		v[prefix+k] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func NonNegativeInt(field string, val int, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

// Email accepts a bare address only; display names are rejected.
func Email(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v[field] = "invalid_email"
	}
}

// Date checks an optional YYYY-MM-DD value.
func Date(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		v[field] = "invalid_date"
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v[field] = "invalid_choice"
}
