package validation

import (
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v[field] = "required"
	}
}

func RequiredDate(field string, t time.Time, v Violations) {
	if t.IsZero() {
		v[field] = "required"
	}
}

// DateOrder flags endField when end precedes start. Zero values are left to
// RequiredDate.
func DateOrder(endField string, start, end time.Time, v Violations) {
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		v[endField] = "before_start_date"
	}
}

func Email(field, value string, v Violations) {
	s := strings.TrimSpace(value)
	if s == "" {
		v[field] = "required"
		return
	}
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 || !strings.Contains(s[at+1:], ".") {
		v[field] = "invalid_email"
	}
}
