package services

import (
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

func checkDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalidInput("%s must be a date in YYYY-MM-DD form", field)
	}
	return t, nil
}

// checkClock accepts HH:MM and HH:MM:SS and returns the HH:MM form.
func checkClock(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{clockLayout, "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", invalidInput("%s must be a time in HH:MM form", field)
}

func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalidInput("%s is required", field)
	}
	return value, nil
}
