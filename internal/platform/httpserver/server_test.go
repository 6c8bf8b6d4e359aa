package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	gatedvoting "slothsafe/contexts/governance/gated-voting"
	"slothsafe/contexts/governance/gated-voting/application/commands"
	"slothsafe/contexts/governance/gated-voting/domain/entities"
	votinghttp "slothsafe/contexts/governance/gated-voting/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paidTransactions struct{}

func (paidTransactions) RecentTransactions(context.Context, string, int) ([]entities.LedgerTransaction, error) {
	return []entities.LedgerTransaction{{
		TokenTransfers: []entities.TokenTransfer{
			{Account: "0.0.1234", Amount: -100000000},
			{Account: "0.0.8063721", Amount: 100000000},
		},
	}}, nil
}

func newTestServer(t *testing.T, origins ...string) *Server {
	t.Helper()
	module, err := gatedvoting.NewInMemoryModule(
		[]entities.Poll{
			{Name: "Poll 1", Link: "https://t.me/c/2366575867/5", ID: "poll_1"},
			{Name: "Poll 2", Link: "https://t.me/c/2366575867/6", ID: "poll_2"},
		},
		entities.PaymentTerms{ReceivingWallet: "0.0.8063721", VotePrice: 1, TokenSymbol: "SLOTHBAR"},
		paidTransactions{},
		slog.Default(),
	)
	require.NoError(t, err)
	return New(module, module.Store, origins, slog.Default(), ":0")
}

func do(t *testing.T, server *Server, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestListPollsOmitsLinks(t *testing.T) {
	server := newTestServer(t)

	rr := do(t, server, http.MethodGet, "/v1/polls", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "t.me")

	resp := decode[votinghttp.ListPollsResponse](t, rr)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Poll 1", resp.Items[0].Name)
	assert.Equal(t, "poll_1", resp.Items[0].ID)
}

func TestVoteFlowOverHTTP(t *testing.T) {
	server := newTestServer(t)

	rr := do(t, server, http.MethodPost, "/v1/sessions/42/vote", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "polls_listed", decode[votinghttp.ReplyResponse](t, rr).Outcome)

	rr = do(t, server, http.MethodGet, "/healthz", "")
	assert.Equal(t, 1, decode[votinghttp.HealthResponse](t, rr).ActiveSessions)

	rr = do(t, server, http.MethodPost, "/v1/sessions/42/messages", `{"text":"Poll 3"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "invalid_poll_selection", decode[votinghttp.ReplyResponse](t, rr).Outcome)

	rr = do(t, server, http.MethodPost, "/v1/sessions/42/messages", `{"text":"Poll 1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "awaiting_wallet_address", decode[votinghttp.ReplyResponse](t, rr).Stage)

	rr = do(t, server, http.MethodPost, "/v1/sessions/42/messages", `{"text":"0.0.1234"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	granted := decode[votinghttp.ReplyResponse](t, rr)
	assert.Equal(t, "vote_granted", granted.Outcome)
	assert.Equal(t, "https://t.me/c/2366575867/5", granted.Link)
	assert.Equal(t, "42", granted.UserID)

	rr = do(t, server, http.MethodGet, "/v1/users/42/votes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"poll_1"}, decode[votinghttp.UserVotesResponse](t, rr).PollIDs)
}

func TestAPIGrantLeavesChatIdentityUntouched(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()
	chatUser := "123456789"

	do(t, server, http.MethodPost, "/v1/sessions/"+chatUser+"/vote", "")
	do(t, server, http.MethodPost, "/v1/sessions/"+chatUser+"/messages", `{"text":"Poll 1"}`)
	rr := do(t, server, http.MethodPost, "/v1/sessions/"+chatUser+"/messages", `{"text":"0.0.1234"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "vote_granted", decode[votinghttp.ReplyResponse](t, rr).Outcome)

	voted, err := server.voting.Store.HasVoted(ctx, chatUser, "poll_1")
	require.NoError(t, err)
	assert.False(t, voted)

	chat := server.voting.Sessions
	chat.InitiateVote(ctx, chatUser)
	chat.OnMessage(ctx, chatUser, "Poll 1")
	reply := chat.OnMessage(ctx, chatUser, "0.0.1234")
	assert.Equal(t, commands.OutcomeVoteGranted, reply.Outcome)
	assert.Equal(t, "https://t.me/c/2366575867/5", reply.Link)

	votes, err := server.voting.Store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"poll_1"}, votes[chatUser])
	assert.Equal(t, []string{"poll_1"}, votes["api:"+chatUser])
}

func TestMessageWithoutSessionConflicts(t *testing.T) {
	server := newTestServer(t)

	rr := do(t, server, http.MethodPost, "/v1/sessions/77/messages", `{"text":"Poll 1"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "session_not_active", decode[votinghttp.ErrorResponse](t, rr).Code)
}

func TestMessageValidation(t *testing.T) {
	server := newTestServer(t)

	rr := do(t, server, http.MethodPost, "/v1/sessions/42/messages", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decode[votinghttp.ErrorResponse](t, rr).Code)

	rr = do(t, server, http.MethodPost, "/v1/sessions/42/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_request", decode[votinghttp.ErrorResponse](t, rr).Code)
}

func TestUnknownUserHasNoVotes(t *testing.T) {
	server := newTestServer(t)

	rr := do(t, server, http.MethodGet, "/v1/users/nobody/votes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[votinghttp.UserVotesResponse](t, rr).PollIDs)
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t)

	rr := do(t, server, http.MethodGet, "/v1/sessions/42/vote", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, "https://slothsafe.example")

	req := httptest.NewRequest(http.MethodOptions, "/v1/polls", nil)
	req.Header.Set("Origin", "https://slothsafe.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "https://slothsafe.example", rr.Header().Get("Access-Control-Allow-Origin"))
}
