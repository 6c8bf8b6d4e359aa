package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"slothsafe/contexts/governance/gated-voting/adapters/memory"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/ports"
	"slothsafe/internal/platform/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grantEnvelope(t *testing.T, id string, pollID string, at time.Time) ports.EventEnvelope {
	t.Helper()
	payload, err := json.Marshal(entities.VoteGrant{
		GrantID:       id,
		UserID:        "42",
		PollID:        pollID,
		PollName:      "Poll 1",
		WalletAddress: "0.0.1234",
		GrantedAt:     at,
	})
	require.NoError(t, err)
	return ports.EventEnvelope{
		EventID:      id,
		EventType:    voteGrantedTopic,
		OccurredAt:   at,
		PartitionKey: pollID,
		Data:         payload,
	}
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(context.Context, string, ports.EventEnvelope) error {
	p.calls++
	return errors.New("broker unavailable")
}

func TestOutboxRelayPublishesAndConsumerAudits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendOutbox(ctx, grantEnvelope(t, "evt-1", "poll_1", now)))
	require.NoError(t, store.AppendOutbox(ctx, grantEnvelope(t, "evt-2", "poll_2", now.Add(time.Second))))

	bus, err := messaging.NewKafka([]string{"localhost:9092"}, nil)
	require.NoError(t, err)
	consumer := NewGrantAuditConsumer(bus, nil)
	require.NoError(t, consumer.Start(ctx))

	relay := OutboxRelay{Outbox: store, Publisher: bus, Clock: store, BatchSize: 10}
	published, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	assert.Eventually(t, func() bool {
		return consumer.Observed() == 2
	}, time.Second, 10*time.Millisecond)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	published, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, published)
}

func TestOutboxRelayStopsAtFirstPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendOutbox(ctx, grantEnvelope(t, "evt-1", "poll_1", now)))
	require.NoError(t, store.AppendOutbox(ctx, grantEnvelope(t, "evt-2", "poll_1", now.Add(time.Second))))

	publisher := &failingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	published, err := relay.RunOnce(ctx)
	require.Error(t, err)
	assert.Zero(t, published)
	assert.Equal(t, 1, publisher.calls)

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "evt-1", relayErr.OutboxID)
	assert.Equal(t, RelayStagePublish, relayErr.Stage)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func TestOutboxRelayStopsAtUndecodableRow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	outbox := &stubOutbox{rows: []ports.OutboxMessage{
		{OutboxID: "evt-1", EventType: voteGrantedTopic, Payload: []byte(`{"event_id":"evt-1"}`), CreatedAt: now},
		{OutboxID: "evt-2", EventType: voteGrantedTopic, Payload: []byte(`{broken`), CreatedAt: now},
		{OutboxID: "evt-3", EventType: voteGrantedTopic, Payload: []byte(`{"event_id":"evt-3"}`), CreatedAt: now},
	}}
	publisher := &recordingPublisher{}

	relay := OutboxRelay{Outbox: outbox, Publisher: publisher, Clock: fixedClock(now)}
	published, err := relay.RunOnce(ctx)

	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "evt-2", relayErr.OutboxID)
	assert.Equal(t, RelayStageDecode, relayErr.Stage)
	assert.Equal(t, 1, published)
	assert.Equal(t, []string{"evt-1"}, outbox.marked)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, []string{voteGrantedTopic}, publisher.topics)
	assert.Equal(t, voteGrantedTopic, publisher.events[0].EventType, "type falls back to the outbox column")
}

type stubOutbox struct {
	rows   []ports.OutboxMessage
	marked []string
}

func (s *stubOutbox) ListPendingOutbox(context.Context, int) ([]ports.OutboxMessage, error) {
	return s.rows, nil
}

func (s *stubOutbox) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.marked = append(s.marked, outboxID)
	return nil
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestGrantAuditConsumerRejectsMalformedPayload(t *testing.T) {
	consumer := NewGrantAuditConsumer(nil, nil)
	err := consumer.handle(context.Background(), ports.EventEnvelope{
		EventID: "evt-bad",
		Data:    json.RawMessage(`"not an object"`),
	})
	assert.Error(t, err)
	assert.Zero(t, consumer.Observed())
}
