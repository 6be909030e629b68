package ton

import (
	"fmt"
	"math/big"

	"github.com/xssnick/tonutils-go/tlb"
)

// ParseTONToNano converts a decimal TON amount such as "1.5" into nanoTON.
func ParseTONToNano(s string) (int64, error) {
	coins, err := tlb.FromTON(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TON amount %q: %w", s, err)
	}
	return nanoToInt64(coins.Nano())
}

// FormatNano renders nanoTON as a decimal TON string.
func FormatNano(nano int64) string {
	return tlb.FromNanoTON(big.NewInt(nano)).String()
}

func nanoToInt64(n *big.Int) (int64, error) {
	if !n.IsInt64() {
		return 0, fmt.Errorf("amount %s nanoTON out of range", n.String())
	}
	return n.Int64(), nil
}
