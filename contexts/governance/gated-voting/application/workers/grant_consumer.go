package workers

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	application "slothsafe/contexts/governance/gated-voting/application"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/ports"
)

const (
	voteGrantedTopic    = "vote.granted"
	defaultGrantAuditCG = "gated-voting-grant-audit-cg"
)

// GrantAuditConsumer writes one audit log line per vote.granted event and
// keeps a running count for health reporting.
type GrantAuditConsumer struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Logger        *slog.Logger

	observed *atomic.Int64
}

func NewGrantAuditConsumer(subscriber ports.EventSubscriber, logger *slog.Logger) *GrantAuditConsumer {
	return &GrantAuditConsumer{
		Subscriber: subscriber,
		Logger:     logger,
		observed:   &atomic.Int64{},
	}
}

func (c *GrantAuditConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultGrantAuditCG
	}
	if c.observed == nil {
		c.observed = &atomic.Int64{}
	}
	if err := c.Subscriber.Subscribe(ctx, voteGrantedTopic, group, c.handle); err != nil {
		logger.Error("grant audit subscribe failed",
			"event", "gated_voting_grant_audit_subscribe_failed",
			"module", application.Module,
			"layer", "worker",
			"topic", voteGrantedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("grant audit consumer subscribed",
		"event", "gated_voting_grant_audit_started",
		"module", application.Module,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Observed returns how many grants were consumed since Start.
func (c *GrantAuditConsumer) Observed() int64 {
	if c.observed == nil {
		return 0
	}
	return c.observed.Load()
}

func (c *GrantAuditConsumer) handle(_ context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var grant entities.VoteGrant
	if err := event.DecodeData(&grant); err != nil {
		logger.Error("vote.granted payload decode failed",
			"event", "gated_voting_grant_audit_decode_failed",
			"module", application.Module,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	c.observed.Add(1)
	logger.Info("vote grant audited",
		"event", "gated_voting_grant_audited",
		"module", application.Module,
		"layer", "worker",
		"event_id", event.EventID,
		"user_id", grant.UserID,
		"poll_id", grant.PollID,
		"wallet", grant.WalletAddress,
		"granted_at", grant.GrantedAt,
	)
	return nil
}
