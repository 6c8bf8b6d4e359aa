package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"slothsafe/contexts/governance/gated-voting/domain/entities"

	"github.com/stretchr/testify/assert"
)

const receivingWallet = "0.0.8063721"

type stubTransactions struct {
	items     []entities.LedgerTransaction
	err       error
	block     bool
	gotWallet string
	gotLimit  int
	calls     int
}

func (s *stubTransactions) RecentTransactions(ctx context.Context, accountID string, limit int) ([]entities.LedgerTransaction, error) {
	s.calls++
	s.gotWallet = accountID
	s.gotLimit = limit
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.items, s.err
}

func paidTo(recipient string, amount int64) entities.LedgerTransaction {
	return entities.LedgerTransaction{
		TransactionID: "0.0.1234-1700000000-000000001",
		TokenTransfers: []entities.TokenTransfer{
			{Account: "0.0.1234", Amount: -amount},
			{Account: recipient, Amount: amount},
		},
	}
}

func query() entities.PaymentQuery {
	return entities.PaymentQuery{
		WalletAddress:  " 0.0.1234 ",
		RequiredAmount: 1,
		Recipient:      receivingWallet,
	}
}

func TestVerifyExactPayment(t *testing.T) {
	source := &stubTransactions{items: []entities.LedgerTransaction{paidTo(receivingWallet, 100000000)}}
	verifier := PaymentVerifier{Transactions: source, TokenDecimals: 8}

	assert.True(t, verifier.Verify(context.Background(), query()))
	assert.Equal(t, "0.0.1234", source.gotWallet)
	assert.Equal(t, DefaultVerificationWindow, source.gotLimit)
	assert.Equal(t, 1, source.calls)
}

func TestVerifyRejectsInexactAmounts(t *testing.T) {
	for _, amount := range []int64{99999999, 100000001, 1} {
		source := &stubTransactions{items: []entities.LedgerTransaction{paidTo(receivingWallet, amount)}}
		verifier := PaymentVerifier{Transactions: source, TokenDecimals: 8}
		assert.False(t, verifier.Verify(context.Background(), query()), "amount %d", amount)
	}
}

func TestVerifyRejectsOtherRecipient(t *testing.T) {
	source := &stubTransactions{items: []entities.LedgerTransaction{paidTo("0.0.42", 100000000)}}
	verifier := PaymentVerifier{Transactions: source, TokenDecimals: 8}

	assert.False(t, verifier.Verify(context.Background(), query()))
}

func TestVerifyLookupFailureIsNotFound(t *testing.T) {
	source := &stubTransactions{err: errors.New("mirror node returned unexpected status: 500")}
	verifier := PaymentVerifier{Transactions: source, TokenDecimals: 8, WindowSize: 10}

	assert.False(t, verifier.Verify(context.Background(), query()))
	assert.Equal(t, 10, source.gotLimit)
	assert.Equal(t, 1, source.calls)
}

func TestVerifyTimeoutIsNotFound(t *testing.T) {
	source := &stubTransactions{block: true}
	verifier := PaymentVerifier{Transactions: source, TokenDecimals: 8, Timeout: 20 * time.Millisecond}

	started := time.Now()
	assert.False(t, verifier.Verify(context.Background(), query()))
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestVerifySkipsIncompleteQuery(t *testing.T) {
	source := &stubTransactions{}
	verifier := PaymentVerifier{Transactions: source, TokenDecimals: 8}

	q := query()
	q.WalletAddress = "   "
	assert.False(t, verifier.Verify(context.Background(), q))
	assert.Zero(t, source.calls)
}

func TestVerifyAmountOverflowIsNotFound(t *testing.T) {
	source := &stubTransactions{}
	verifier := PaymentVerifier{Transactions: source, TokenDecimals: 30}

	assert.False(t, verifier.Verify(context.Background(), query()))
	assert.Zero(t, source.calls)
}
