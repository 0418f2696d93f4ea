package deployres

import (
	"math/big"
	"strconv"
	"strings"
)

func parseUnix(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseHexUnix(hex string) (int64, bool) {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(hex, "0x"), 16); !ok {
		return 0, false
	}
	return n.Int64(), true
}

func hexToBig(hex string) *big.Int {
	n := new(big.Int)
	n.SetString(strings.TrimPrefix(hex, "0x"), 16)
	return n
}
