package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
	"slothsafe/contexts/governance/gated-voting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps sessions, vote credentials and the grant outbox in process
// memory. One RWMutex serializes every mutation.
type Store struct {
	mu sync.RWMutex

	votes    entities.UserVoteRecord
	sessions map[string]entities.Session
	outbox   map[string]outboxRecord
}

func NewStore(seed entities.UserVoteRecord) *Store {
	return &Store{
		votes:    seed.Normalize(),
		sessions: make(map[string]entities.Session),
		outbox:   make(map[string]outboxRecord),
	}
}

func (s *Store) Load(_ context.Context) (entities.UserVoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes.Clone(), nil
}

func (s *Store) HasVoted(_ context.Context, userID string, pollID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes.HasVoted(userID, pollID), nil
}

func (s *Store) VotesFor(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes.PollsOf(strings.TrimSpace(userID)), nil
}

func (s *Store) Record(_ context.Context, userID string, pollID string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(pollID) == "" {
		return false, domainerrors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votes.Add(userID, pollID), nil
}

func (s *Store) GetSession(_ context.Context, userID string) (entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return entities.IdleSession(userID), nil
	}
	return session, nil
}

func (s *Store) SaveSession(_ context.Context, session entities.Session) error {
	if strings.TrimSpace(session.UserID()) == "" {
		return domainerrors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.IsIdle() {
		delete(s.sessions, session.UserID())
		return nil
	}
	s.sessions[session.UserID()] = session
	return nil
}

func (s *Store) DeleteSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// ActiveSessions counts users with a non-idle conversation.
func (s *Store) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RecordGrant adds the credential and queues envelope under the same lock.
func (s *Store) RecordGrant(
	_ context.Context,
	userID string,
	pollID string,
	envelope ports.EventEnvelope,
) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(pollID) == "" {
		return false, domainerrors.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.votes.HasVoted(userID, pollID) {
		return false, nil
	}
	if err := s.appendOutboxLocked(envelope); err != nil {
		return false, err
	}
	s.votes.Add(userID, pollID)
	return true, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOutboxLocked(envelope)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.VoteLedger = (*Store)(nil)
var _ ports.SessionStore = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.GrantRecorder = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
