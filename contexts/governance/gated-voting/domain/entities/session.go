package entities

import "time"

type SessionStage string

const (
	SessionStageIdle                  SessionStage = "idle"
	SessionStageAwaitingPollSelection SessionStage = "awaiting_poll_selection"
	SessionStageAwaitingWalletAddress SessionStage = "awaiting_wallet_address"
)

// Session is one user's in-flight voting conversation. Fields are private so
// a selected poll can only exist in the awaiting-wallet stage; build values
// with the stage constructors below. The zero value is an idle session.
type Session struct {
	userID    string
	stage     SessionStage
	poll      Poll
	updatedAt time.Time
}

func IdleSession(userID string) Session {
	return Session{userID: userID, stage: SessionStageIdle}
}

func AwaitingPollSelection(userID string, at time.Time) Session {
	return Session{
		userID:    userID,
		stage:     SessionStageAwaitingPollSelection,
		updatedAt: at.UTC(),
	}
}

func AwaitingWalletAddress(userID string, poll Poll, at time.Time) Session {
	return Session{
		userID:    userID,
		stage:     SessionStageAwaitingWalletAddress,
		poll:      poll,
		updatedAt: at.UTC(),
	}
}

func (s Session) UserID() string {
	return s.userID
}

func (s Session) Stage() SessionStage {
	if s.stage == "" {
		return SessionStageIdle
	}
	return s.stage
}

// SelectedPoll returns the poll chosen by the user; ok is false outside the
// awaiting-wallet stage.
func (s Session) SelectedPoll() (Poll, bool) {
	if s.Stage() != SessionStageAwaitingWalletAddress {
		return Poll{}, false
	}
	return s.poll, true
}

func (s Session) UpdatedAt() time.Time {
	return s.updatedAt
}

func (s Session) IsIdle() bool {
	return s.Stage() == SessionStageIdle
}
