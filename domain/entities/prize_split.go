package entities

import "github.com/shopspring/decimal"

var (
	// HouseFeeRate is the share of the gross pool credited to the house
	HouseFeeRate = decimal.RequireFromString("0.10")

	// RankShares are the shares of the net pool per rank; the last rank takes the remainder
	RankShares = [WinnerSlots]decimal.Decimal{
		decimal.RequireFromString("0.50"),
		decimal.RequireFromString("0.30"),
		decimal.RequireFromString("0.20"),
	}
)

// PrizeSplit is the breakdown of one draw's pool
type PrizeSplit struct {
	Gross    decimal.Decimal
	HouseFee decimal.Decimal
	Net      decimal.Decimal
	Prizes   [WinnerSlots]decimal.Decimal
}

// CalculatePrizeSplit divides a gross pool into the house fee and ranked prizes.
// Rounding residue lands in the last rank so HouseFee + sum(Prizes) == Gross exactly.
func CalculatePrizeSplit(gross decimal.Decimal) PrizeSplit {
	houseFee := RoundMoney(gross.Mul(HouseFeeRate))
	net := gross.Sub(houseFee)

	split := PrizeSplit{
		Gross:    gross,
		HouseFee: houseFee,
		Net:      net,
	}

	remaining := net
	for rank := 0; rank < WinnerSlots-1; rank++ {
		split.Prizes[rank] = RoundMoney(net.Mul(RankShares[rank]))
		remaining = remaining.Sub(split.Prizes[rank])
	}
	split.Prizes[WinnerSlots-1] = remaining

	return split
}

// Unclaimed returns the prize money of ranks that were not awarded
func (p PrizeSplit) Unclaimed(awarded int) decimal.Decimal {
	total := decimal.Zero
	for rank := awarded; rank < WinnerSlots; rank++ {
		total = total.Add(p.Prizes[rank])
	}
	return total
}
