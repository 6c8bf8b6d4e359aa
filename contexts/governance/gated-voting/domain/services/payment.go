package services

import (
	"math"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
)

// SmallestUnits shifts a whole-token amount by 10^decimals.
func SmallestUnits(amount int64, decimals int) (int64, error) {
	if amount < 0 || decimals < 0 {
		return 0, domainerrors.ErrInvalidInput
	}
	units := amount
	for i := 0; i < decimals; i++ {
		if units > math.MaxInt64/10 {
			return 0, domainerrors.ErrAmountOverflow
		}
		units *= 10
	}
	return units, nil
}

// HasQualifyingTransfer reports whether any token transfer credits exactly
// amount to recipient. Larger or smaller amounts never qualify.
func HasQualifyingTransfer(transactions []entities.LedgerTransaction, recipient string, amount int64) bool {
	for _, tx := range transactions {
		for _, transfer := range tx.TokenTransfers {
			if transfer.Account == recipient && transfer.Amount == amount {
				return true
			}
		}
	}
	return false
}
