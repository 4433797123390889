package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const InstitutionalDomain = "unicesmag.edu.co"

var (
	instructorNamePattern     = regexp.MustCompile(`^[\p{L}\p{M}\s]+$`)
	institutionalEmailPattern = regexp.MustCompile(`^[^,\s@]+@` + regexp.QuoteMeta(InstitutionalDomain) + `$`)
)

var clockLayouts = []string{"15:04:05", "15:04"}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// NewValidator returns a validator with the lab form rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerRecordValidations(v)
	return v
}

func registerRecordValidations(v *validator.Validate) {
	_ = v.RegisterValidation("instructor_name", func(fl validator.FieldLevel) bool {
		return instructorNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("institutional_email", func(fl validator.FieldLevel) bool {
		return institutionalEmailPattern.MatchString(fl.Field().String())
	})
}

// parseClock accepts HH:MM and HH:MM:SS, as sent by <input type="time">.
func parseClock(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time of day %q", raw)
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}
