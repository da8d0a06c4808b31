package sqlsource

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/via-network/bridge-relayer/pkg/indexer"
)

const schema = `
CREATE TABLE message_sent_events (
	id TEXT PRIMARY KEY,
	origin TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	transaction_hash TEXT NOT NULL,
	block_timestamp BIGINT NOT NULL,
	payload BYTEA,
	vault_nonce TEXT,
	vault_address TEXT,
	receiver TEXT,
	shares TEXT,
	l1_batch_number BIGINT,
	exchange_rate TEXT,
	message_count INT
);

CREATE TABLE message_withdrawal_executed_events (LIKE message_sent_events INCLUDING ALL);
`

func setupTestSQLSource(t *testing.T) (*SQLSource, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://test_user:test_pass@%s:%d/test_db?sslmode=disable", host, port.Int())

	src, err := Open(ctx, dsn)
	require.NoError(t, err)

	_, err = src.db.ExecContext(ctx, schema)
	require.NoError(t, err)

	cleanup := func() {
		_ = src.Close()
		_ = testcontainers.TerminateContainer(container)
	}
	return src, cleanup
}

func TestSQLSource_EventsSinceBlock_MessageSentInclusiveLowerBound(t *testing.T) {
	src, cleanup := setupTestSQLSource(t)
	defer cleanup()
	ctx := context.Background()

	_, err := src.db.ExecContext(ctx,
		`INSERT INTO message_sent_events (id, origin, block_number, transaction_hash, block_timestamp, payload)
		 VALUES ('evt-1', 'ethereum', 100, '0xsrc1', 1000, '\x1234')`)
	require.NoError(t, err)

	events, err := src.EventsSinceBlock(ctx, indexer.StreamMessageSent, "ethereum", 100, 200, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "0xsrc1", events[0].TransactionHash)
	require.Equal(t, []byte{0x12, 0x34}, events[0].Payload)
}

func TestSQLSource_EventsSinceBlock_ExecutedStreamExclusiveLowerBound(t *testing.T) {
	src, cleanup := setupTestSQLSource(t)
	defer cleanup()
	ctx := context.Background()

	_, err := src.db.ExecContext(ctx,
		`INSERT INTO message_withdrawal_executed_events (id, origin, block_number, transaction_hash, block_timestamp)
		 VALUES ('evt-1', 'via', 100, '0xdest1', 1000)`)
	require.NoError(t, err)

	events, err := src.EventsSinceBlock(ctx, indexer.StreamMessageWithdrawalExec, "via", 100, 200, 10)
	require.NoError(t, err)
	require.Empty(t, events, "exclusive lower bound should not return the boundary row")

	events, err = src.EventsSinceBlock(ctx, indexer.StreamMessageWithdrawalExec, "via", 99, 200, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestSQLSource_EventsByTxHashes(t *testing.T) {
	src, cleanup := setupTestSQLSource(t)
	defer cleanup()
	ctx := context.Background()

	_, err := src.db.ExecContext(ctx,
		`INSERT INTO message_sent_events (id, origin, block_number, transaction_hash, block_timestamp)
		 VALUES ('evt-1', 'ethereum', 100, '0xsrc1', 1000), ('evt-2', 'ethereum', 101, '0xsrc2', 1001)`)
	require.NoError(t, err)

	events, err := src.EventsByTxHashes(ctx, indexer.StreamMessageSent, "ethereum", []string{"0xsrc2"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "0xsrc2", events[0].TransactionHash)
}

func TestSQLSource_EventsByTxHashes_EmptyInputReturnsNoRows(t *testing.T) {
	src, cleanup := setupTestSQLSource(t)
	defer cleanup()

	events, err := src.EventsByTxHashes(context.Background(), indexer.StreamMessageSent, "ethereum", nil)
	require.NoError(t, err)
	require.Empty(t, events)
}
