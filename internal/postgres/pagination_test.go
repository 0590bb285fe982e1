package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:        uuid.NewString(),
	}

	s, err := EncodeCursor(in)
	require.NoError(t, err)
	require.NotEmpty(t, s)

	out, err := DecodeCursor(s)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.Equal(t, in.ID, out.ID)
}

func TestDecodeCursorEmptyMeansFromTop(t *testing.T) {
	out, err := DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, s := range []string{
		"not base64 !!",
		"bm90IGpzb24",             // base64("not json")
		"eyJ0IjoiIiwiaWQiOiJ4In0", // valid json, zero time, bad id
	} {
		_, err := DecodeCursor(s)
		require.ErrorIs(t, err, ErrInvalidCursor, "input %q", s)
	}
}
