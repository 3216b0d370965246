package services

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Currency describes the coin raffle balances are held in.
type Currency struct {
	Symbol   string
	Decimals int32
}

// FormatAmount renders an amount in the smallest unit as a human string,
// e.g. 500000000 MIST as "0.5 SUI".
func (c Currency) FormatAmount(amount uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).Shift(-c.Decimals)
	return d.String() + " " + c.Symbol
}

// ToSmallestUnit converts a human amount (e.g. 1.5 SUI) to the smallest
// unit, truncating anything finer than one unit.
func (c Currency) ToSmallestUnit(amount decimal.Decimal) uint64 {
	return uint64(amount.Shift(c.Decimals).Truncate(0).IntPart())
}

// formatDeadline renders an epoch-millisecond deadline as ISO-8601 UTC.
func formatDeadline(deadlineMillis int64) string {
	return time.UnixMilli(deadlineMillis).UTC().Format("2006-01-02T15:04:05.000Z")
}
