package entities

import (
	"slices"
	"time"
)

// UserVoteRecord maps a user id to the poll ids that user already voted in.
// Its JSON form is the persisted ledger document.
type UserVoteRecord map[string][]string

func (r UserVoteRecord) HasVoted(userID string, pollID string) bool {
	return slices.Contains(r[userID], pollID)
}

// PollsOf returns a copy of userID's poll ids; never nil.
func (r UserVoteRecord) PollsOf(userID string) []string {
	return append([]string{}, r[userID]...)
}

// Add inserts pollID for userID and reports whether it was new.
func (r UserVoteRecord) Add(userID string, pollID string) bool {
	if r.HasVoted(userID, pollID) {
		return false
	}
	r[userID] = append(r[userID], pollID)
	return true
}

func (r UserVoteRecord) Clone() UserVoteRecord {
	out := make(UserVoteRecord, len(r))
	for userID, polls := range r {
		out[userID] = append([]string(nil), polls...)
	}
	return out
}

// Normalize drops empty keys and duplicate poll ids while keeping order.
func (r UserVoteRecord) Normalize() UserVoteRecord {
	out := make(UserVoteRecord, len(r))
	for userID, polls := range r {
		if userID == "" {
			continue
		}
		for _, pollID := range polls {
			if pollID == "" {
				continue
			}
			out.Add(userID, pollID)
		}
	}
	return out
}

// VoteGrant is the audit fact emitted when a paid vote credential is issued.
type VoteGrant struct {
	GrantID       string    `json:"grant_id"`
	UserID        string    `json:"user_id"`
	PollID        string    `json:"poll_id"`
	PollName      string    `json:"poll_name"`
	WalletAddress string    `json:"wallet_address"`
	GrantedAt     time.Time `json:"granted_at"`
}
