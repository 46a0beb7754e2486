package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStudyDate(t *testing.T) {
	t.Run("valid compact date", func(t *testing.T) {
		got, err := ParseStudyDate("20240115")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("leap day", func(t *testing.T) {
		got, err := ParseStudyDate("20240229")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), got)
	})

	invalid := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too short", "2024011"},
		{"too long", "202401150"},
		{"dashed", "2024-01-15"},
		{"letters", "2024O115"},
		{"month thirteen", "20241301"},
		{"day thirty two", "20240132"},
		{"february thirty", "20230230"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStudyDate(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestFormatStudyDate(t *testing.T) {
	d := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", FormatStudyDateISO(d))
	assert.Equal(t, "20240115", FormatStudyDateCompact(d))
}
