package service

import (
	"fmt"
	"time"
)

const (
	studyDateLayout    = "20060102"
	studyDateISOLayout = "2006-01-02"
)

// ParseStudyDate converts a compact DICOM-style date (YYYYMMDD) into a
// calendar date. Anything that is not exactly 8 digits, or that does not
// name a real day, is rejected.
func ParseStudyDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("invalid date format %q, expected YYYYMMDD", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("invalid date format %q, expected YYYYMMDD", s)
		}
	}
	// time.Parse with this layout also catches normalized overflow like
	// month 13 or day 32.
	t, err := time.Parse(studyDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatStudyDateISO renders a study date as an ISO calendar date (2024-01-15).
func FormatStudyDateISO(t time.Time) string {
	return t.Format(studyDateISOLayout)
}

// FormatStudyDateCompact renders a study date back in the compact
// YYYYMMDD form used by the flat file listing.
func FormatStudyDateCompact(t time.Time) string {
	return t.Format(studyDateLayout)
}
