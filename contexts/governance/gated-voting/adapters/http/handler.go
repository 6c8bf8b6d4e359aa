package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	application "slothsafe/contexts/governance/gated-voting/application"
	"slothsafe/contexts/governance/gated-voting/application/commands"
	"slothsafe/contexts/governance/gated-voting/application/queries"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"
	httptransport "slothsafe/contexts/governance/gated-voting/transport/http"
)

// APIUserPrefix puts API callers in their own user namespace. Chat user ids
// never carry it, so a session opened over HTTP cannot spend a chat user's
// credential.
const APIUserPrefix = "api:"

type Handler struct {
	Sessions commands.SessionUseCase
	Polls    queries.PollQueryUseCase
	Logger   *slog.Logger
}

// ListPollsHandler godoc
// @Summary List votable polls
// @Description Returns poll names and ids in catalog order. Voting links are only revealed after payment.
// @Tags gated-voting
// @Produce json
// @Success 200 {object} httptransport.ListPollsResponse
// @Router /v1/polls [get]
func (h Handler) ListPollsHandler(_ context.Context) httptransport.ListPollsResponse {
	polls := h.Polls.ListPolls()
	items := make([]httptransport.PollItem, 0, len(polls))
	for _, poll := range polls {
		items = append(items, httptransport.PollItem{
			Name: poll.Name,
			ID:   poll.ID,
		})
	}
	return httptransport.ListPollsResponse{Items: items}
}

// InitiateVoteHandler godoc
// @Summary Start a voting session
// @Description Moves the API user to poll selection and returns the poll list prompt. API users are kept apart from chat users.
// @Tags gated-voting
// @Produce json
// @Param user_id path string true "API user id"
// @Success 200 {object} httptransport.ReplyResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{user_id}/vote [post]
func (h Handler) InitiateVoteHandler(ctx context.Context, userID string) (httptransport.ReplyResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return httptransport.ReplyResponse{}, domainerrors.ErrInvalidInput
	}
	reply := h.Sessions.InitiateVote(ctx, apiUser(userID))
	return mapReply(userID, reply), nil
}

// SubmitMessageHandler godoc
// @Summary Send a message into a voting session
// @Description Advances the session with a poll name or a wallet address.
// @Tags gated-voting
// @Accept json
// @Produce json
// @Param user_id path string true "API user id"
// @Param request body httptransport.SubmitMessageRequest true "Message text"
// @Success 200 {object} httptransport.ReplyResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/sessions/{user_id}/messages [post]
func (h Handler) SubmitMessageHandler(
	ctx context.Context,
	userID string,
	req httptransport.SubmitMessageRequest,
) (httptransport.ReplyResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(req.Text) == "" {
		return httptransport.ReplyResponse{}, domainerrors.ErrInvalidInput
	}
	reply := h.Sessions.OnMessage(ctx, apiUser(userID), req.Text)
	if reply.Outcome == commands.OutcomeIgnored {
		logger.Info("message without active session",
			"event", "http_gated_voting_message_no_session",
			"module", application.Module,
			"layer", "transport",
			"user_id", strings.TrimSpace(userID),
		)
		return httptransport.ReplyResponse{}, domainerrors.ErrSessionNotActive
	}
	return mapReply(userID, reply), nil
}

// UserVotesHandler godoc
// @Summary List an API user's vote credentials
// @Tags gated-voting
// @Produce json
// @Param user_id path string true "API user id"
// @Success 200 {object} httptransport.UserVotesResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/users/{user_id}/votes [get]
func (h Handler) UserVotesHandler(ctx context.Context, userID string) (httptransport.UserVotesResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return httptransport.UserVotesResponse{}, domainerrors.ErrInvalidInput
	}
	votes, err := h.Polls.UserVotes(ctx, apiUser(userID))
	if err != nil {
		application.ResolveLogger(h.Logger).Error("user votes request failed",
			"event", "http_gated_voting_user_votes_failed",
			"module", application.Module,
			"layer", "transport",
			"user_id", strings.TrimSpace(userID),
			"error", err.Error(),
		)
		return httptransport.UserVotesResponse{}, err
	}
	return httptransport.UserVotesResponse{
		UserID:  strings.TrimSpace(userID),
		PollIDs: votes.PollIDs,
	}, nil
}

func apiUser(userID string) string {
	return APIUserPrefix + strings.TrimSpace(userID)
}

func mapReply(userID string, reply commands.Reply) httptransport.ReplyResponse {
	return httptransport.ReplyResponse{
		UserID:   strings.TrimSpace(userID),
		Outcome:  string(reply.Outcome),
		Stage:    string(reply.Stage),
		Text:     reply.Text,
		PollName: reply.PollName,
		Link:     reply.Link,
	}
}
