package queries

import (
	"context"
	"strings"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
	"slothsafe/contexts/governance/gated-voting/domain/services"
	"slothsafe/contexts/governance/gated-voting/ports"
)

// UserVotes lists the polls a user already holds a credential for.
type UserVotes struct {
	UserID  string
	PollIDs []string
}

type PollQueryUseCase struct {
	Catalog services.PollCatalog
	Ledger  ports.VoteLedger
}

func (uc PollQueryUseCase) ListPolls() []entities.Poll {
	return uc.Catalog.Polls()
}

func (uc PollQueryUseCase) UserVotes(ctx context.Context, userID string) (UserVotes, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserVotes{}, domainerrors.ErrInvalidInput
	}
	polls, err := uc.Ledger.VotesFor(ctx, userID)
	if err != nil {
		return UserVotes{}, err
	}
	if polls == nil {
		polls = []string{}
	}
	return UserVotes{
		UserID:  userID,
		PollIDs: polls,
	}, nil
}
