package ports

import (
	"context"
	"time"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/internal/shared/events"
	"slothsafe/internal/shared/outbox"
)

// VoteLedger is the single writer of vote credentials.
type VoteLedger interface {
	// Load returns the persisted user -> poll ids mapping.
	Load(ctx context.Context) (entities.UserVoteRecord, error)
	HasVoted(ctx context.Context, userID string, pollID string) (bool, error)
	// VotesFor returns the poll ids userID holds a credential for, oldest first.
	VotesFor(ctx context.Context, userID string) ([]string, error)
	// Record stores the credential and reports whether this call created it.
	// Implementations re-check for an existing credential inside the write.
	Record(ctx context.Context, userID string, pollID string) (bool, error)
}

// SessionStore keeps in-flight conversations; a missing session is idle.
type SessionStore interface {
	GetSession(ctx context.Context, userID string) (entities.Session, error)
	SaveSession(ctx context.Context, session entities.Session) error
	DeleteSession(ctx context.Context, userID string) error
}

// TransactionSource lists an account's most recent ledger transactions.
type TransactionSource interface {
	RecentTransactions(ctx context.Context, accountID string, limit int) ([]entities.LedgerTransaction, error)
}

// PaymentVerifier answers whether a qualifying payment exists. Lookup failures
// are reported as false.
type PaymentVerifier interface {
	Verify(ctx context.Context, query entities.PaymentQuery) bool
}

// ProgressNotifier delivers interim status text to a user while a slow step
// runs.
type ProgressNotifier interface {
	NotifyProgress(ctx context.Context, userID string, text string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage = outbox.Message

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

// GrantRecorder stores a credential together with its grant event in one
// write. It reports false without touching the outbox when the credential
// already exists.
type GrantRecorder interface {
	RecordGrant(ctx context.Context, userID string, pollID string, envelope EventEnvelope) (bool, error)
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
