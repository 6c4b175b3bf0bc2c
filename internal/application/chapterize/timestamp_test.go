package chapterize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1:02:03", 3723},
		{"02:03", 123},
		{"0:00", 0},
	}
	for _, c := range cases {
		got, err := decodeTimestamp(c.in)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestDecodeTimestampMalformed(t *testing.T) {
	_, err := decodeTimestamp("not-a-time")
	require.Error(t, err)

	_, err = decodeTimestamp("1:2:3:4")
	require.Error(t, err)
}
