// Package sqlsource implements indexer.Source directly against the external
// subgraph's own relational mirror, read-only, via parameterized SQL.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/via-network/bridge-relayer/pkg/indexer"
)

// SQLSource is a read-only indexer.Source backed by a Postgres connection
// the external indexer publishes.
type SQLSource struct {
	db *sql.DB
}

// Open connects to dsn and verifies it is reachable.
func Open(ctx context.Context, dsn string) (*SQLSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open indexer db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping indexer db: %w", err)
	}
	return &SQLSource{db: db}, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

var tableByStream = map[indexer.Stream]string{
	indexer.StreamMessageSent:            "message_sent_events",
	indexer.StreamDepositExecuted:        "deposit_executed_events",
	indexer.StreamMessageWithdrawalExec:  "message_withdrawal_executed_events",
	indexer.StreamWithdrawalStateUpdated: "withdrawal_state_updated_events",
}

// EventsSinceBlock implements indexer.Source. MessageSent uses an inclusive
// lower bound (a relayer restarting mid-block must not skip the event that
// was last seen); the …Executed streams use an exclusive lower bound since
// those are only ever consumed once confirmed finalized.
func (s *SQLSource) EventsSinceBlock(ctx context.Context, stream indexer.Stream, origin string, fromBlock, toBlock uint64, limit int) ([]indexer.Event, error) {
	table, ok := tableByStream[stream]
	if !ok {
		return nil, fmt.Errorf("unknown stream: %s", stream)
	}

	lowerOp := ">"
	if stream == indexer.StreamMessageSent {
		lowerOp = ">="
	}

	query := fmt.Sprintf(`
		SELECT id, block_number, transaction_hash, block_timestamp,
		       payload, vault_nonce, vault_address, receiver, shares,
		       l1_batch_number, exchange_rate, message_count
		FROM %s
		WHERE origin = $1 AND block_number %s $2 AND block_number <= $3
		ORDER BY block_number ASC, id ASC
		LIMIT $4`, table, lowerOp)

	rows, err := s.db.QueryContext(ctx, query, origin, fromBlock, toBlock, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", stream, err)
	}
	defer rows.Close()

	return scanEvents(rows, stream)
}

// EventsByTxHashes implements indexer.Source.
func (s *SQLSource) EventsByTxHashes(ctx context.Context, stream indexer.Stream, origin string, hashes []string) ([]indexer.Event, error) {
	table, ok := tableByStream[stream]
	if !ok {
		return nil, fmt.Errorf("unknown stream: %s", stream)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, block_number, transaction_hash, block_timestamp,
		       payload, vault_nonce, vault_address, receiver, shares,
		       l1_batch_number, exchange_rate, message_count
		FROM %s
		WHERE origin = $1 AND transaction_hash = ANY($2)
		ORDER BY block_number ASC, id ASC`, table)

	rows, err := s.db.QueryContext(ctx, query, origin, pq.Array(hashes))
	if err != nil {
		return nil, fmt.Errorf("query %s by tx hashes: %w", stream, err)
	}
	defer rows.Close()

	return scanEvents(rows, stream)
}

// WithdrawalStateEvents implements indexer.Source.
func (s *SQLSource) WithdrawalStateEvents(ctx context.Context, batchNumbers []uint64, maxBlock uint64, limit int) ([]indexer.Event, error) {
	if len(batchNumbers) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(batchNumbers))
	for i, b := range batchNumbers {
		ids[i] = int64(b)
	}

	query := `
		SELECT id, block_number, transaction_hash, block_timestamp,
		       payload, vault_nonce, vault_address, receiver, shares,
		       l1_batch_number, exchange_rate, message_count
		FROM withdrawal_state_updated_events
		WHERE l1_batch_number = ANY($1) AND block_number <= $2
		ORDER BY block_number ASC, id ASC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids), maxBlock, limit)
	if err != nil {
		return nil, fmt.Errorf("query withdrawal state events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows, indexer.StreamWithdrawalStateUpdated)
}

func scanEvents(rows *sql.Rows, kind indexer.Stream) ([]indexer.Event, error) {
	var events []indexer.Event
	for rows.Next() {
		var (
			e                                       indexer.Event
			payload                                 []byte
			vaultNonce, vault, receiver, shares      sql.NullString
			l1Batch                                 sql.NullInt64
			exchangeRate                             sql.NullString
			msgCount                                 sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.BlockNumber, &e.TransactionHash, &e.BlockTimestamp,
			&payload, &vaultNonce, &vault, &receiver, &shares,
			&l1Batch, &exchangeRate, &msgCount); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		e.Kind = kind
		e.Payload = payload
		e.VaultNonce = vaultNonce.String
		e.Vault = vault.String
		e.Receiver = receiver.String
		e.Shares = shares.String
		e.L1Batch = uint64(l1Batch.Int64)
		e.ExchangeRate = exchangeRate.String
		e.MessageCount = int(msgCount.Int64)
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ indexer.Source = (*SQLSource)(nil)
