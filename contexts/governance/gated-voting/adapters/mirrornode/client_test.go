package mirrornode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionsBody = `{
  "transactions": [
    {
      "transaction_id": "0.0.1234-1700000000-000000001",
      "consensus_timestamp": "1700000000.000000001",
      "result": "SUCCESS",
      "token_transfers": [
        {"token_id": "0.0.555", "account": "0.0.1234", "amount": -100000000, "is_approval": false},
        {"token_id": "0.0.555", "account": "0.0.8063721", "amount": 100000000, "is_approval": false}
      ]
    },
    {
      "transaction_id": "0.0.1234-1700000100-000000002",
      "consensus_timestamp": "1700000100.000000002",
      "result": "SUCCESS",
      "transfers": [{"account": "0.0.98", "amount": 5}]
    }
  ],
  "links": {"next": null}
}`

func TestRecentTransactionsQueriesAccountWindow(t *testing.T) {
	var gotPath, gotAccount, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccount = r.URL.Query().Get("account.id")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(transactionsBody))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client(), nil)
	txs, err := client.RecentTransactions(context.Background(), "0.0.1234", 5)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/transactions", gotPath)
	assert.Equal(t, "0.0.1234", gotAccount)
	assert.Equal(t, "5", gotLimit)

	require.Len(t, txs, 2)
	assert.Equal(t, "0.0.1234-1700000000-000000001", txs[0].TransactionID)
	require.Len(t, txs[0].TokenTransfers, 2)
	assert.Equal(t, "0.0.8063721", txs[0].TokenTransfers[1].Account)
	assert.Equal(t, int64(100000000), txs[0].TokenTransfers[1].Amount)
	assert.Empty(t, txs[1].TokenTransfers)
}

func TestRecentTransactionsNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), nil)
	_, err := client.RecentTransactions(context.Background(), "0.0.1234", 5)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRecentTransactionsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"transactions": [`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client(), nil)
	_, err := client.RecentTransactions(context.Background(), "0.0.1234", 5)
	assert.Error(t, err)
}

func TestRecentTransactionsHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, server.Client(), nil)
	_, err := client.RecentTransactions(ctx, "0.0.1234", 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  ", nil, nil)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
}
