package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
	"slothsafe/contexts/governance/gated-voting/ports"
)

// Ledger persists vote credentials as one JSON document of the form
// {"<user id>": ["<poll id>", ...]}. Every new credential rewrites the whole
// document through a temp file and rename before Record returns. A single
// mutex serializes writers; reads are served from the last persisted state.
type Ledger struct {
	mu     sync.RWMutex
	path   string
	votes  entities.UserVoteRecord
	logger *slog.Logger
}

// Open reads the document at path. A missing file is an empty ledger; an
// unreadable one fails with ErrStorageCorrupt.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: ledger path is required", domainerrors.ErrInvalidInput)
	}
	ledger := &Ledger{path: path, logger: logger}
	votes, err := ledger.read()
	if err != nil {
		return nil, ledger.logError("gated_voting_jsonfile_open_failed", err)
	}
	ledger.votes = votes
	logger.Info("vote ledger opened",
		"event", "gated_voting_jsonfile_opened",
		"module", "governance/gated-voting",
		"layer", "adapter",
		"path", path,
		"users", len(votes),
	)
	return ledger, nil
}

// Load re-reads the persisted document.
func (l *Ledger) Load(_ context.Context) (entities.UserVoteRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	votes, err := l.read()
	if err != nil {
		return nil, l.logError("gated_voting_jsonfile_load_failed", err)
	}
	return votes, nil
}

func (l *Ledger) HasVoted(_ context.Context, userID string, pollID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.votes.HasVoted(userID, pollID), nil
}

// VotesFor is served from the last persisted state.
func (l *Ledger) VotesFor(_ context.Context, userID string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.votes.PollsOf(strings.TrimSpace(userID)), nil
}

func (l *Ledger) Record(_ context.Context, userID string, pollID string) (bool, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(pollID) == "" {
		return false, domainerrors.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.votes.HasVoted(userID, pollID) {
		return false, nil
	}
	next := l.votes.Clone()
	next.Add(userID, pollID)
	if err := l.write(next); err != nil {
		return false, l.logError("gated_voting_jsonfile_write_failed", err,
			"user_id", userID,
			"poll_id", pollID,
		)
	}
	l.votes = next
	return true, nil
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) read() (entities.UserVoteRecord, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entities.UserVoteRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vote ledger %s: %w", l.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domainerrors.ErrStorageCorrupt, l.path)
	}
	var votes entities.UserVoteRecord
	if err := json.Unmarshal(raw, &votes); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domainerrors.ErrStorageCorrupt, l.path, err)
	}
	return votes.Normalize(), nil
}

func (l *Ledger) write(votes entities.UserVoteRecord) error {
	payload, err := json.Marshal(votes)
	if err != nil {
		return fmt.Errorf("encode vote ledger: %w", err)
	}
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		cleanup()
		return fmt.Errorf("replace vote ledger: %w", err)
	}
	return nil
}

func (l *Ledger) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+10)
	fields = append(fields,
		"event", event,
		"module", "governance/gated-voting",
		"layer", "adapter",
		"path", l.path,
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	l.logger.Error("vote ledger operation failed", fields...)
	return err
}

var _ ports.VoteLedger = (*Ledger)(nil)
