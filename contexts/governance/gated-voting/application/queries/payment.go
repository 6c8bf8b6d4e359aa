package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "slothsafe/contexts/governance/gated-voting/application"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/domain/services"
	"slothsafe/contexts/governance/gated-voting/ports"
)

const DefaultVerificationWindow = 5

// PaymentVerifier checks a wallet's most recent ledger transactions for a
// transfer of exactly the vote price to the receiving wallet. It issues one
// lookup per call with no retries; lookup failures and timeouts count as
// "not found". Payments older than the window are never seen.
type PaymentVerifier struct {
	Transactions  ports.TransactionSource
	TokenDecimals int
	WindowSize    int
	Timeout       time.Duration
	Logger        *slog.Logger
}

func (v PaymentVerifier) Verify(ctx context.Context, query entities.PaymentQuery) bool {
	logger := application.ResolveLogger(v.Logger)
	wallet := strings.TrimSpace(query.WalletAddress)
	if wallet == "" || strings.TrimSpace(query.Recipient) == "" {
		logger.Warn("payment verification skipped for incomplete query",
			"event", "gated_voting_verify_invalid_query",
			"module", application.Module,
			"layer", "application",
			"wallet", wallet,
		)
		return false
	}
	required, err := services.SmallestUnits(query.RequiredAmount, v.TokenDecimals)
	if err != nil {
		logger.Warn("payment amount cannot be expressed in ledger units",
			"event", "gated_voting_verify_amount_invalid",
			"module", application.Module,
			"layer", "application",
			"required_amount", query.RequiredAmount,
			"token_decimals", v.TokenDecimals,
			"error", err.Error(),
		)
		return false
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	window := v.WindowSize
	if window <= 0 {
		window = DefaultVerificationWindow
	}

	transactions, err := v.Transactions.RecentTransactions(ctx, wallet, window)
	if err != nil {
		logger.Warn("ledger lookup failed, treating payment as not found",
			"event", "gated_voting_verify_lookup_failed",
			"module", application.Module,
			"layer", "application",
			"wallet", wallet,
			"error", err.Error(),
		)
		return false
	}
	matched := services.HasQualifyingTransfer(transactions, query.Recipient, required)
	logger.Debug("ledger transactions scanned",
		"event", "gated_voting_verify_scanned",
		"module", application.Module,
		"layer", "application",
		"wallet", wallet,
		"transactions", len(transactions),
		"matched", matched,
	)
	return matched
}
