package commands

import (
	"context"
	"encoding/json"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/ports"
)

const (
	VoteGrantedEventType = "vote.granted"
	sourceService        = "gated-voting"
)

func (uc SessionUseCase) appendGrantEvent(
	ctx context.Context,
	userID string,
	poll entities.Poll,
	wallet string,
) error {
	// Outbox is optional for read-only and test wiring.
	if uc.Outbox == nil || uc.IDGen == nil {
		return nil
	}
	envelope, err := uc.grantEnvelope(ctx, userID, poll, wallet)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc SessionUseCase) grantEnvelope(
	ctx context.Context,
	userID string,
	poll entities.Poll,
	wallet string,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	grant := entities.VoteGrant{
		GrantID:       eventID,
		UserID:        userID,
		PollID:        poll.ID,
		PollName:      poll.Name,
		WalletAddress: wallet,
		GrantedAt:     uc.now(),
	}
	return newGrantEnvelope(grant)
}

// newGrantEnvelope partitions by poll so per-poll consumers see grants in
// order.
func newGrantEnvelope(grant entities.VoteGrant) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(grant)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          grant.GrantID,
		EventType:        VoteGrantedEventType,
		OccurredAt:       grant.GrantedAt.UTC(),
		SourceService:    sourceService,
		TraceID:          grant.GrantID,
		SchemaVersion:    1,
		PartitionKeyPath: "poll_id",
		PartitionKey:     grant.PollID,
		Data:             payload,
	}, nil
}
