package entities

// PaymentQuery asks whether WalletAddress sent RequiredAmount whole tokens to
// Recipient.
type PaymentQuery struct {
	WalletAddress  string
	RequiredAmount int64
	Recipient      string
}

// PaymentTerms is the fixed price of one vote.
type PaymentTerms struct {
	ReceivingWallet string
	VotePrice       int64
	TokenSymbol     string
}

// TokenTransfer is one token line item of a ledger transaction. Amount is in
// the token's smallest unit; debits are negative.
type TokenTransfer struct {
	TokenID string
	Account string
	Amount  int64
}

type LedgerTransaction struct {
	TransactionID      string
	ConsensusTimestamp string
	Result             string
	TokenTransfers     []TokenTransfer
}
