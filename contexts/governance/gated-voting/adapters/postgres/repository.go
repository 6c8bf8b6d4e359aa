package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
	"slothsafe/contexts/governance/gated-voting/ports"
	"slothsafe/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores vote credentials and the grant outbox in Postgres. The
// (user_id, poll_id) primary key makes Record's existence check and insert a
// single atomic statement; RecordGrant adds the outbox row in the same
// transaction.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Load(ctx context.Context) (entities.UserVoteRecord, error) {
	var rows []voteCredentialModel
	if err := r.db.WithContext(ctx).
		Order("user_id ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("gated_voting_repo_load_failed", err)
	}
	votes := make(entities.UserVoteRecord, len(rows))
	for _, row := range rows {
		votes.Add(row.UserID, row.PollID)
	}
	return votes, nil
}

func (r *Repository) HasVoted(ctx context.Context, userID string, pollID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteCredentialModel{}).
		Where("user_id = ? AND poll_id = ?", strings.TrimSpace(userID), strings.TrimSpace(pollID)).
		Count(&count).Error; err != nil {
		return false, r.logError("gated_voting_repo_has_voted_failed", err,
			"user_id", strings.TrimSpace(userID),
			"poll_id", strings.TrimSpace(pollID),
		)
	}
	return count > 0, nil
}

func (r *Repository) VotesFor(ctx context.Context, userID string) ([]string, error) {
	userID = strings.TrimSpace(userID)
	polls := []string{}
	if err := r.db.WithContext(ctx).
		Model(&voteCredentialModel{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("poll_id", &polls).Error; err != nil {
		return nil, r.logError("gated_voting_repo_votes_for_failed", err, "user_id", userID)
	}
	return polls, nil
}

func (r *Repository) Record(ctx context.Context, userID string, pollID string) (bool, error) {
	row, err := newCredentialRow(userID, pollID)
	if err != nil {
		return false, err
	}
	created, err := insertCredential(r.db.WithContext(ctx), row)
	if err != nil {
		return false, r.logError("gated_voting_repo_record_failed", err,
			"user_id", row.UserID,
			"poll_id", row.PollID,
		)
	}
	return created, nil
}

// RecordGrant inserts the credential and its outbox row in one transaction.
// A credential that already exists commits nothing.
func (r *Repository) RecordGrant(
	ctx context.Context,
	userID string,
	pollID string,
	envelope ports.EventEnvelope,
) (bool, error) {
	row, err := newCredentialRow(userID, pollID)
	if err != nil {
		return false, err
	}
	event, err := newOutboxRow(envelope)
	if err != nil {
		return false, r.logError("gated_voting_repo_record_grant_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}

	created := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := insertCredential(tx, row)
		if err != nil || !inserted {
			return err
		}
		if err := insertOutbox(tx, event); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, r.logError("gated_voting_repo_record_grant_failed", err,
			"user_id", row.UserID,
			"poll_id", row.PollID,
			"outbox_id", event.OutboxID,
		)
	}
	return created, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	row, err := newOutboxRow(envelope)
	if err != nil {
		return r.logError("gated_voting_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	if err := insertOutbox(r.db.WithContext(ctx), row); err != nil {
		if errors.Is(err, domainerrors.ErrConflict) {
			return err
		}
		return r.logError("gated_voting_repo_append_outbox_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func newCredentialRow(userID string, pollID string) (voteCredentialModel, error) {
	row := voteCredentialModel{
		UserID:    strings.TrimSpace(userID),
		PollID:    strings.TrimSpace(pollID),
		CreatedAt: time.Now().UTC(),
	}
	if row.UserID == "" || row.PollID == "" {
		return voteCredentialModel{}, domainerrors.ErrInvalidInput
	}
	return row, nil
}

// insertCredential reports false when (user_id, poll_id) already exists.
func insertCredential(db *gorm.DB, row voteCredentialModel) (bool, error) {
	create := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "poll_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return false, nil
		}
		return false, create.Error
	}
	return create.RowsAffected > 0, nil
}

func newOutboxRow(envelope ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

// insertOutbox is idempotent per outbox_id; a different payload under the
// same id is ErrConflict.
func insertOutbox(db *gorm.DB, row outboxModel) error {
	create := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return create.Error
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := db.Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return err
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("gated_voting_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("gated_voting_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/gated-voting",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("vote repository operation failed", fields...)
	return err
}

type voteCredentialModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	PollID    string    `gorm:"column:poll_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (voteCredentialModel) TableName() string {
	return "vote_credentials"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "voting_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.VoteLedger = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.GrantRecorder = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.Clock = SystemClock{}
var _ ports.IDGenerator = UUIDGenerator{}
