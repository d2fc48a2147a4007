package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTokenRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 50, 123456789}
	for _, offset := range cases {
		token := EncodePageToken(offset)
		got, err := DecodePageToken(token)
		require.NoError(t, err)
		assert.Equal(t, offset, got)
	}
}

func TestDecodePageToken_EmptyIsFirstPage(t *testing.T) {
	offset, err := DecodePageToken("")
	require.NoError(t, err)
	assert.Zero(t, offset)
}

func TestDecodePageToken_Malformed(t *testing.T) {
	_, err := DecodePageToken("not-valid-base64!!")
	assert.Error(t, err)
}

func TestClampPageSize(t *testing.T) {
	cases := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero uses default", 0, DefaultPageSize},
		{"negative uses default", -5, DefaultPageSize},
		{"within bounds is kept", 10, 10},
		{"above max is clamped", MaxPageSize + 50, MaxPageSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, clampPageSize(tc.requested))
		})
	}
}
