package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRPCCountBareNumber(t *testing.T) {
	n, err := parseRPCCount("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = parseRPCCount("  3\n")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestParseRPCCountRowArray(t *testing.T) {
	n, err := parseRPCCount(`[{"count": 12}]`)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestParseRPCCountRejectsGarbage(t *testing.T) {
	_, err := parseRPCCount("not a number")
	assert.Error(t, err)

	_, err = parseRPCCount("[]")
	assert.Error(t, err)
}
