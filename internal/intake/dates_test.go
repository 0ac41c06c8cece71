package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "iso date", input: "2024-03-15", want: "2024-03-15"},
		{name: "day first slashes", input: "15/03/2024", want: "2024-03-15"},
		{name: "ambiguous reads day first", input: "02/03/2024", want: "2024-03-02"},
		{name: "long form", input: "March 15, 2024", want: "2024-03-15"},
		{name: "surrounding whitespace", input: "  2024-03-15  ", want: "2024-03-15"},
		{name: "timestamp truncated to date", input: "2024-03-15T17:45:00Z", want: "2024-03-15"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeDateString(tc.input)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.Format(DateLayout))
			require.Equal(t, time.UTC, got.Location())
			require.Equal(t, 0, got.Hour())
		})
	}
}

func TestNormalizeDateStringEmpty(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\t\n"} {
		got, err := NormalizeDateString(input)
		require.NoError(t, err)
		require.Nil(t, got)
	}
}

func TestNormalizeDateStringUnparseable(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"not a date at all", "N/A"} {
		got, err := NormalizeDateString(input)
		require.Nil(t, got)
		require.Error(t, err)

		var parseErr *DateParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, input, parseErr.Input)
	}
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	require.Nil(t, NormalizeDate(time.Time{}))

	in := time.Date(2024, time.March, 15, 23, 59, 59, 0, time.FixedZone("X", -5*3600))
	got := NormalizeDate(in)
	require.NotNil(t, got)
	// 23:59 at UTC-5 is already the 16th in UTC.
	require.Equal(t, "2024-03-16", got.Format(DateLayout))
}

func TestStripSentinel(t *testing.T) {
	t.Parallel()

	require.Nil(t, StripSentinel(nil))

	sentinel := time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.Nil(t, StripSentinel(&sentinel))

	before := time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	require.Nil(t, StripSentinel(&before))

	real := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, &real, StripSentinel(&real))
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", FormatDate(nil))
	d := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2024-03-15", FormatDate(&d))
}
