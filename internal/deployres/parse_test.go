package deployres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUnix(t *testing.T) {
	n, ok := parseUnix(" 1438269973 ")
	assert.True(t, ok)
	assert.Equal(t, int64(1438269973), n)

	_, ok = parseUnix("not-a-number")
	assert.False(t, ok)
}

func TestParseHexUnix(t *testing.T) {
	n, ok := parseHexUnix("0x55ba4215")
	assert.True(t, ok)
	assert.Equal(t, int64(1438269973), n)

	_, ok = parseHexUnix("zz")
	assert.False(t, ok)
}

func TestHexToBig(t *testing.T) {
	n := hexToBig("0x10")
	assert.Equal(t, int64(16), n.Int64())
}

func TestGenesisMarkerRecognized(t *testing.T) {
	assert.True(t, genesisMarkers["GENESIS"])
	assert.False(t, genesisMarkers["0xabc"])
}
