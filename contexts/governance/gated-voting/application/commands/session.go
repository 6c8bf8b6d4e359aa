package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "slothsafe/contexts/governance/gated-voting/application"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/domain/services"
	"slothsafe/contexts/governance/gated-voting/ports"
)

type Outcome string

const (
	OutcomeIgnored              Outcome = "ignored"
	OutcomePollsListed          Outcome = "polls_listed"
	OutcomePollSelected         Outcome = "poll_selected"
	OutcomeInvalidPollSelection Outcome = "invalid_poll_selection"
	OutcomeAlreadyVoted         Outcome = "already_voted"
	OutcomeVoteGranted          Outcome = "vote_granted"
	OutcomePaymentNotFound      Outcome = "payment_not_found"
	OutcomeFailed               Outcome = "failed"
)

// Reply is the outbound message for one conversation step. Text is empty when
// the step produces nothing to send.
type Reply struct {
	Outcome  Outcome
	Text     string
	Link     string
	PollName string
	Stage    entities.SessionStage
}

// SessionUseCase drives the payment-gated voting conversation:
// idle -> awaiting poll selection -> awaiting wallet address -> idle.
// Payment verification runs without any ledger lock held; the ledger's
// Record re-check decides races between duplicate submissions. When Grants is
// set the credential and its vote.granted event are written together.
type SessionUseCase struct {
	Catalog  services.PollCatalog
	Sessions ports.SessionStore
	Ledger   ports.VoteLedger
	Verifier ports.PaymentVerifier
	Outbox   ports.OutboxWriter
	Grants   ports.GrantRecorder
	Progress ports.ProgressNotifier
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Terms    entities.PaymentTerms
	GroupID  int64
	Logger   *slog.Logger
}

// InitiateVote starts (or restarts) poll selection for userID.
func (uc SessionUseCase) InitiateVote(ctx context.Context, userID string) Reply {
	logger := application.ResolveLogger(uc.Logger)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Reply{Outcome: OutcomeIgnored, Stage: entities.SessionStageIdle}
	}
	session := entities.AwaitingPollSelection(userID, uc.now())
	if err := uc.Sessions.SaveSession(ctx, session); err != nil {
		logger.Error("vote session start failed",
			"event", "gated_voting_session_start_failed",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
		return Reply{Outcome: OutcomeFailed, Text: failedText, Stage: entities.SessionStageIdle}
	}
	logger.Info("vote session started",
		"event", "gated_voting_session_started",
		"module", application.Module,
		"layer", "application",
		"user_id", userID,
		"poll_count", uc.Catalog.Len(),
	)
	return Reply{
		Outcome: OutcomePollsListed,
		Text:    pollListText(uc.Catalog.ListPolls()),
		Stage:   session.Stage(),
	}
}

// OnMessage advances userID's session with free text. Messages from users
// without an active session are ignored.
func (uc SessionUseCase) OnMessage(ctx context.Context, userID string, text string) Reply {
	logger := application.ResolveLogger(uc.Logger)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Reply{Outcome: OutcomeIgnored, Stage: entities.SessionStageIdle}
	}
	session, err := uc.Sessions.GetSession(ctx, userID)
	if err != nil {
		logger.Error("vote session lookup failed",
			"event", "gated_voting_session_lookup_failed",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
		return Reply{Outcome: OutcomeFailed, Text: failedText, Stage: entities.SessionStageIdle}
	}

	switch session.Stage() {
	case entities.SessionStageAwaitingPollSelection:
		return uc.selectPoll(ctx, session, text)
	case entities.SessionStageAwaitingWalletAddress:
		return uc.submitWallet(ctx, session, text)
	default:
		logger.Debug("message outside voting session ignored",
			"event", "gated_voting_message_ignored",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
		)
		return Reply{Outcome: OutcomeIgnored, Stage: entities.SessionStageIdle}
	}
}

// WelcomeText greets a new member of the voting group. ok is false for any
// other chat.
func (uc SessionUseCase) WelcomeText(chatID int64, firstName string) (string, bool) {
	if chatID != uc.GroupID {
		return "", false
	}
	return welcomeText(firstName, uc.Terms), true
}

func (uc SessionUseCase) StartText() string {
	return startText
}

func (uc SessionUseCase) HelpText() string {
	return helpText(uc.Terms)
}

func (uc SessionUseCase) selectPoll(ctx context.Context, session entities.Session, text string) Reply {
	logger := application.ResolveLogger(uc.Logger)
	poll, err := uc.Catalog.Resolve(strings.TrimSpace(text))
	if err != nil {
		logger.Info("poll selection rejected",
			"event", "gated_voting_poll_selection_invalid",
			"module", application.Module,
			"layer", "application",
			"user_id", session.UserID(),
		)
		return Reply{
			Outcome: OutcomeInvalidPollSelection,
			Text:    invalidPollSelectionText,
			Stage:   session.Stage(),
		}
	}

	next := entities.AwaitingWalletAddress(session.UserID(), poll, uc.now())
	if err := uc.Sessions.SaveSession(ctx, next); err != nil {
		logger.Error("poll selection save failed",
			"event", "gated_voting_poll_selection_save_failed",
			"module", application.Module,
			"layer", "application",
			"user_id", session.UserID(),
			"poll_id", poll.ID,
			"error", err.Error(),
		)
		return Reply{Outcome: OutcomeFailed, Text: failedText, Stage: session.Stage()}
	}
	logger.Info("poll selected",
		"event", "gated_voting_poll_selected",
		"module", application.Module,
		"layer", "application",
		"user_id", session.UserID(),
		"poll_id", poll.ID,
	)
	return Reply{
		Outcome:  OutcomePollSelected,
		Text:     pollSelectedText(poll, uc.Terms),
		PollName: poll.Name,
		Stage:    next.Stage(),
	}
}

func (uc SessionUseCase) submitWallet(ctx context.Context, session entities.Session, text string) Reply {
	logger := application.ResolveLogger(uc.Logger)
	userID := session.UserID()
	poll, _ := session.SelectedPoll()
	wallet := strings.TrimSpace(text)

	voted, err := uc.Ledger.HasVoted(ctx, userID, poll.ID)
	if err != nil {
		return uc.failed(session, poll, "gated_voting_ledger_lookup_failed", err)
	}
	if voted {
		uc.endSession(ctx, userID)
		logger.Info("vote refused, credential already issued",
			"event", "gated_voting_already_voted",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"poll_id", poll.ID,
		)
		return Reply{
			Outcome:  OutcomeAlreadyVoted,
			Text:     alreadyVotedText,
			PollName: poll.Name,
			Stage:    entities.SessionStageIdle,
		}
	}

	uc.notifyProgress(ctx, userID, checkingPaymentText(poll))
	paid := uc.Verifier.Verify(ctx, entities.PaymentQuery{
		WalletAddress:  wallet,
		RequiredAmount: uc.Terms.VotePrice,
		Recipient:      uc.Terms.ReceivingWallet,
	})
	if !paid {
		logger.Info("payment not found",
			"event", "gated_voting_payment_not_found",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"poll_id", poll.ID,
			"wallet", wallet,
		)
		return Reply{
			Outcome:  OutcomePaymentNotFound,
			Text:     paymentNotFoundText(uc.Terms),
			PollName: poll.Name,
			Stage:    session.Stage(),
		}
	}

	created, err := uc.recordGrant(ctx, userID, poll, wallet)
	if err != nil {
		return uc.failed(session, poll, "gated_voting_record_failed", err)
	}
	uc.endSession(ctx, userID)
	if !created {
		logger.Info("duplicate submission lost the record race",
			"event", "gated_voting_record_duplicate",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"poll_id", poll.ID,
		)
		return Reply{
			Outcome:  OutcomeAlreadyVoted,
			Text:     alreadyVotedText,
			PollName: poll.Name,
			Stage:    entities.SessionStageIdle,
		}
	}

	logger.Info("vote granted",
		"event", "gated_voting_vote_granted",
		"module", application.Module,
		"layer", "application",
		"user_id", userID,
		"poll_id", poll.ID,
		"wallet", wallet,
	)
	return Reply{
		Outcome:  OutcomeVoteGranted,
		Text:     voteGrantedText(poll),
		Link:     poll.Link,
		PollName: poll.Name,
		Stage:    entities.SessionStageIdle,
	}
}

func (uc SessionUseCase) recordGrant(
	ctx context.Context,
	userID string,
	poll entities.Poll,
	wallet string,
) (bool, error) {
	if uc.Grants != nil && uc.IDGen != nil {
		envelope, err := uc.grantEnvelope(ctx, userID, poll, wallet)
		if err != nil {
			return false, err
		}
		return uc.Grants.RecordGrant(ctx, userID, poll.ID, envelope)
	}

	created, err := uc.Ledger.Record(ctx, userID, poll.ID)
	if err != nil || !created {
		return created, err
	}
	if err := uc.appendGrantEvent(ctx, userID, poll, wallet); err != nil {
		// The credential is recorded; the link is returned even without the event.
		application.ResolveLogger(uc.Logger).Error("vote grant event append failed",
			"event", "gated_voting_grant_event_failed",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"poll_id", poll.ID,
			"error", err.Error(),
		)
	}
	return true, nil
}

func (uc SessionUseCase) failed(session entities.Session, poll entities.Poll, event string, err error) Reply {
	application.ResolveLogger(uc.Logger).Error("vote ledger operation failed",
		"event", event,
		"module", application.Module,
		"layer", "application",
		"user_id", session.UserID(),
		"poll_id", poll.ID,
		"error", err.Error(),
	)
	return Reply{
		Outcome:  OutcomeFailed,
		Text:     failedText,
		PollName: poll.Name,
		Stage:    session.Stage(),
	}
}

func (uc SessionUseCase) endSession(ctx context.Context, userID string) {
	if err := uc.Sessions.DeleteSession(ctx, userID); err != nil {
		application.ResolveLogger(uc.Logger).Warn("vote session cleanup failed",
			"event", "gated_voting_session_cleanup_failed",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
	}
}

func (uc SessionUseCase) notifyProgress(ctx context.Context, userID string, text string) {
	if uc.Progress == nil {
		return
	}
	if err := uc.Progress.NotifyProgress(ctx, userID, text); err != nil {
		application.ResolveLogger(uc.Logger).Warn("progress notice not delivered",
			"event", "gated_voting_progress_notify_failed",
			"module", application.Module,
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
	}
}

func (uc SessionUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
