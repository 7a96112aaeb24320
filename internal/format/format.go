package format

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Ether renders a wei amount in whole units, e.g. 2000000000000000 -> "0.002"
func Ether(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}

// ShortAddress renders 0x1234...abcd using the checksum casing
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

// ShortHash renders 0x12345678...12345678
func ShortHash(hash common.Hash) string {
	hex := hash.Hex()
	return hex[:10] + "..." + hex[len(hex)-8:]
}
