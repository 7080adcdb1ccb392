package utils

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ProcessValidationErrors flattens validator errors into field => message,
// suitable for a JSON error response.
func ProcessValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			errs[LowercaseFirst(verr.Field())] = "failed on " + verr.Tag()
		}
	} else if err != nil {
		errs["error"] = err.Error()
	}
	return errs
}

func NewTrue() *bool {
	b := true
	return &b
}

func LowercaseFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ParseDateInput accepts the date formats the dashboard and CSV uploads
// produce. Returned times are normalized to midnight UTC.
func ParseDateInput(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		"01/02/2006",
		"1/2/2006",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
