package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"slothsafe/contexts/governance/gated-voting/domain/entities"
	domainerrors "slothsafe/contexts/governance/gated-voting/domain/errors"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "user_votes.json")
}

func TestOpenMissingFileIsEmptyLedger(t *testing.T) {
	ledger, err := Open(ledgerPath(t), nil)
	require.NoError(t, err)

	votes, err := ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestRecordPersistsBeforeReturning(t *testing.T) {
	path := ledgerPath(t)
	ledger, err := Open(path, nil)
	require.NoError(t, err)

	created, err := ledger.Record(context.Background(), "123456789", "poll_1")
	require.NoError(t, err)
	assert.True(t, created)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"123456789":["poll_1"]}`, string(raw))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	voted, err := reopened.HasVoted(context.Background(), "123456789", "poll_1")
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestRecordIsIdempotent(t *testing.T) {
	ledger, err := Open(ledgerPath(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := ledger.Record(ctx, "42", "poll_1")
	require.NoError(t, err)
	require.True(t, created)

	created, err = ledger.Record(ctx, "42", "poll_1")
	require.NoError(t, err)
	assert.False(t, created)

	votes, err := ledger.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.UserVoteRecord{"42": {"poll_1"}}, votes)
}

func TestRecordRejectsBlankIDs(t *testing.T) {
	ledger, err := Open(ledgerPath(t), nil)
	require.NoError(t, err)

	_, err = ledger.Record(context.Background(), " ", "poll_1")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	_, err = ledger.Record(context.Background(), "42", "")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestOpenCorruptFileFails(t *testing.T) {
	cases := map[string]string{
		"garbage":    "{not json",
		"wrong type": `["poll_1"]`,
		"empty":      "",
		"whitespace": "  \n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := ledgerPath(t)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := Open(path, nil)
			assert.ErrorIs(t, err, domainerrors.ErrStorageCorrupt)
		})
	}
}

func TestOpenNullDocumentIsEmpty(t *testing.T) {
	path := ledgerPath(t)
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o600))

	ledger, err := Open(path, nil)
	require.NoError(t, err)
	created, err := ledger.Record(context.Background(), "42", "poll_2")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestConcurrentRecordsCreateOnce(t *testing.T) {
	path := ledgerPath(t)
	ledger, err := Open(path, nil)
	require.NoError(t, err)

	userID := gofakeit.Numerify("#########")
	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.Record(context.Background(), userID, "poll_1")
			if err == nil && ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	votes, err := ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"poll_1"}, votes[userID])
}

func TestConcurrentRecordsForManyUsersAllPersist(t *testing.T) {
	path := ledgerPath(t)
	ledger, err := Open(path, nil)
	require.NoError(t, err)

	users := make([]string, 20)
	for i := range users {
		users[i] = gofakeit.UUID()
	}
	var wg sync.WaitGroup
	for _, userID := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, _ = ledger.Record(context.Background(), userID, "poll_2")
		}(userID)
	}
	wg.Wait()

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	votes, err := reopened.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, votes, len(users))
	for _, userID := range users {
		assert.True(t, votes.HasVoted(userID, "poll_2"))
	}
}

func TestVotesForServesPersistedStateWithoutRereading(t *testing.T) {
	path := ledgerPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"42":["poll_1"]}`), 0o600))
	ledger, err := Open(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ledger.Record(ctx, "42", "poll_2")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	polls, err := ledger.VotesFor(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"poll_1", "poll_2"}, polls)

	polls, err = ledger.VotesFor(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, polls)
}
