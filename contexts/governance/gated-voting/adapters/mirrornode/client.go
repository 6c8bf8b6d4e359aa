package mirrornode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	"slothsafe/contexts/governance/gated-voting/ports"
)

const (
	DefaultBaseURL   = "https://mainnet-public.mirrornode.hedera.com"
	transactionsPath = "/api/v1/transactions"
	maxResponseBytes = 4 << 20
)

var ErrUnexpectedStatus = errors.New("mirror node returned unexpected status")

// Client reads account transaction history from a Hedera mirror node REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// RecentTransactions issues a single GET for the newest limit transactions
// of accountID. Non-200 responses are returned as ErrUnexpectedStatus.
func (c *Client) RecentTransactions(ctx context.Context, accountID string, limit int) ([]entities.LedgerTransaction, error) {
	query := url.Values{}
	query.Set("account.id", accountID)
	query.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + transactionsPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build mirror node request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query mirror node: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("mirror node transactions fetched",
		"event", "gated_voting_mirror_fetch",
		"module", "governance/gated-voting",
		"layer", "adapter",
		"account_id", accountID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body transactionsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode mirror node response: %w", err)
	}
	return body.toEntities(), nil
}

type transactionsResponse struct {
	Transactions []transactionDTO `json:"transactions"`
}

type transactionDTO struct {
	TransactionID      string             `json:"transaction_id"`
	ConsensusTimestamp string             `json:"consensus_timestamp"`
	Result             string             `json:"result"`
	TokenTransfers     []tokenTransferDTO `json:"token_transfers"`
}

type tokenTransferDTO struct {
	TokenID string `json:"token_id"`
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

func (r transactionsResponse) toEntities() []entities.LedgerTransaction {
	items := make([]entities.LedgerTransaction, 0, len(r.Transactions))
	for _, tx := range r.Transactions {
		transfers := make([]entities.TokenTransfer, 0, len(tx.TokenTransfers))
		for _, transfer := range tx.TokenTransfers {
			transfers = append(transfers, entities.TokenTransfer{
				TokenID: transfer.TokenID,
				Account: transfer.Account,
				Amount:  transfer.Amount,
			})
		}
		items = append(items, entities.LedgerTransaction{
			TransactionID:      tx.TransactionID,
			ConsensusTimestamp: tx.ConsensusTimestamp,
			Result:             tx.Result,
			TokenTransfers:     transfers,
		})
	}
	return items
}

var _ ports.TransactionSource = (*Client)(nil)
