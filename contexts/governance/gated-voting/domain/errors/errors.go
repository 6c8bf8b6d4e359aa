package errors

import "errors"

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrAlreadyVoted     = errors.New("user already voted in this poll")
	ErrPaymentNotFound  = errors.New("no matching payment found")
	ErrStorageCorrupt   = errors.New("persisted vote state is corrupt")
	ErrInvalidCatalog   = errors.New("invalid poll catalog")
	ErrInvalidInput     = errors.New("invalid voting input")
	ErrAmountOverflow   = errors.New("payment amount overflows ledger units")
	ErrConflict         = errors.New("voting conflict")
	ErrSessionNotActive = errors.New("no active voting session")
)
