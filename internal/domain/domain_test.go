package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00+02:00", time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00.123456", time.Date(2024, 3, 15, 10, 30, 0, 123456000, time.UTC)},
		{"2024-03-15", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTimestamp_JSON(t *testing.T) {
	var p Photo
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","upload_date":"2024-03-15T10:30:00"}`), &p))
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), p.UploadedAt().UTC())

	out, err := json.Marshal(p.UploadDate)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-15T10:30:00Z"`, string(out))

	t.Run("null and empty are zero", func(t *testing.T) {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
		assert.True(t, ts.IsZero())
		require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
		assert.True(t, ts.IsZero())
	})

	t.Run("numbers are rejected", func(t *testing.T) {
		var ts Timestamp
		assert.Error(t, json.Unmarshal([]byte(`1710498600`), &ts))
	})
}

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "default"},
		{"default", "default"},
		{"date", "date:desc"},
		{"Date:ASC", "date:asc"},
		{"size:asc", "size:asc"},
		{"size", "size:desc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			spec, err := ParseSortSpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.String())
		})
	}

	_, err := ParseSortSpec("name")
	assert.Error(t, err)
	_, err = ParseSortSpec("date:sideways")
	assert.Error(t, err)

	asc, _ := ParseSortSpec("date:asc")
	assert.True(t, asc.IsDateAscending())
	var none *SortSpec
	assert.False(t, none.IsDateAscending())
}

func TestGrouping(t *testing.T) {
	g, err := ParseGrouping("Month")
	require.NoError(t, err)
	assert.Equal(t, GroupByMonth, g)

	g, err = ParseGrouping("")
	require.NoError(t, err)
	assert.Equal(t, GroupByDate, g)

	_, err = ParseGrouping("week")
	assert.Error(t, err)

	assert.Equal(t, GroupByMonth, GroupByDate.Next())
	assert.Equal(t, GroupByYear, GroupByMonth.Next())
	assert.Equal(t, GroupByDate, GroupByYear.Next())
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "Authentication required. Please sign in.",
		UserMessage(fmt.Errorf("list photos: %w", ErrAuthRequired)))
	assert.Equal(t, "Please sign in first.", UserMessage(ErrNotAuthenticated))
	assert.Equal(t, "Server error. Please try again later.", UserMessage(ErrServer))
	assert.Equal(t, "The request timed out.", UserMessage(context.DeadlineExceeded))
	assert.Equal(t, "An unexpected error occurred.", UserMessage(fmt.Errorf("boom")))
}

func TestPhoto(t *testing.T) {
	t.Run("display name falls back", func(t *testing.T) {
		assert.Equal(t, "beach.jpg", Photo{ID: "1", OriginalName: "beach.jpg", Filename: "abc.jpg"}.DisplayName())
		assert.Equal(t, "abc.jpg", Photo{ID: "1", Filename: "abc.jpg"}.DisplayName())
		assert.Equal(t, "photo-1", Photo{ID: "1"}.DisplayName())
	})

	t.Run("formatted size", func(t *testing.T) {
		assert.Equal(t, "0 Bytes", FormatBytes(0))
		assert.Equal(t, "500 Bytes", FormatBytes(500))
		assert.Equal(t, "1 KB", FormatBytes(1024))
		assert.Equal(t, "1.5 KB", FormatBytes(1536))
		assert.Equal(t, "2.5 MB", Photo{Size: 5 * 1024 * 1024 / 2}.FormattedSize())
	})

	t.Run("partial update", func(t *testing.T) {
		name := "renamed.jpg"
		size := int64(42)
		p := Photo{ID: "1", OriginalName: "a.jpg", Size: 10, ContentType: "image/jpeg"}

		got := PhotoUpdate{OriginalName: &name, Size: &size}.Apply(p)
		assert.Equal(t, "renamed.jpg", got.OriginalName)
		assert.Equal(t, int64(42), got.Size)
		assert.Equal(t, "image/jpeg", got.ContentType)
		assert.Equal(t, "a.jpg", p.OriginalName, "input is not modified")
	})
}
