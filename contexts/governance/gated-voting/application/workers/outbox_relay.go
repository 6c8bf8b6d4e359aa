package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "slothsafe/contexts/governance/gated-voting/application"
	"slothsafe/contexts/governance/gated-voting/ports"
)

const defaultRelayBatch = 100

const (
	RelayStageDecode  = "decode"
	RelayStagePublish = "publish"
	RelayStageMark    = "mark_published"
)

// RelayError names the outbox row and the step that stopped a relay cycle.
type RelayError struct {
	OutboxID string
	Stage    string
	Err      error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay outbox row %s: %s: %v", e.OutboxID, e.Stage, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// OutboxRelay moves pending vote.granted rows from the outbox onto the bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays one batch in outbox order and returns how many rows were
// published. A row is marked only after its publish succeeded, and the cycle
// ends at the first row that fails so later grants never overtake it.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)

	pending, err := r.Outbox.ListPendingOutbox(ctx, r.batchSize())
	if err != nil {
		logger.Error("grant outbox list failed",
			"event", "gated_voting_outbox_list_failed",
			"module", application.Module,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	publishedAt := r.now()
	for i, row := range pending {
		if err := r.relayRow(ctx, row, publishedAt); err != nil {
			stage := ""
			var relayErr *RelayError
			if errors.As(err, &relayErr) {
				stage = relayErr.Stage
			}
			logger.Error("grant outbox relay stopped",
				"event", "gated_voting_outbox_relay_stopped",
				"module", application.Module,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"stage", stage,
				"published_count", i,
				"remaining", len(pending)-i,
				"error", err.Error(),
			)
			return i, err
		}
	}

	if len(pending) > 0 {
		logger.Info("grant outbox batch relayed",
			"event", "gated_voting_outbox_relay_completed",
			"module", application.Module,
			"layer", "worker",
			"published_count", len(pending),
		)
	}
	return len(pending), nil
}

// relayRow publishes one row on the topic named by its event type. Rows
// whose payload lacks a type fall back to the outbox column.
func (r OutboxRelay) relayRow(ctx context.Context, row ports.OutboxMessage, publishedAt time.Time) error {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return &RelayError{OutboxID: row.OutboxID, Stage: RelayStageDecode, Err: err}
	}
	if event.EventType == "" {
		event.EventType = row.EventType
	}
	if err := r.Publisher.Publish(ctx, event.EventType, event); err != nil {
		return &RelayError{OutboxID: row.OutboxID, Stage: RelayStagePublish, Err: err}
	}
	if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, publishedAt); err != nil {
		return &RelayError{OutboxID: row.OutboxID, Stage: RelayStageMark, Err: err}
	}
	return nil
}

func (r OutboxRelay) batchSize() int {
	if r.BatchSize <= 0 {
		return defaultRelayBatch
	}
	return r.BatchSize
}

func (r OutboxRelay) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}
