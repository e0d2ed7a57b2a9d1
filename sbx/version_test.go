package sbx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionTable(t *testing.T) {
	cases := []struct {
		v         Version
		blockSize int
		usesRS    bool
	}{
		{V1, 512, false},
		{V2, 128, false},
		{V3, 4096, false},
		{V17, 512, true},
		{V18, 128, true},
		{V19, 4096, true},
	}
	for _, c := range cases {
		require.True(t, c.v.IsValid())
		require.Equal(t, c.blockSize, c.v.BlockSize())
		require.Equal(t, c.blockSize-HeaderSize, c.v.DataSize())
		require.Equal(t, c.usesRS, c.v.UsesRS())
		require.Equal(t, c.usesRS, c.v.RequiresMetadata())
	}
}

func TestParseVersionRejectsUnknown(t *testing.T) {
	_, err := ParseVersion(200)
	require.Error(t, err)
}

func TestVersionString(t *testing.T) {
	require.Equal(t, "V1", V1.String())
	require.Equal(t, "V17", V17.String())
	require.Contains(t, Version(99).String(), "99")
}
