// Package pgstore implements store.Store against PostgreSQL using raw
// database/sql, mirroring the teacher's split of bun for schema migrations
// and plain SQL for the hot query path.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lib/pq"

	"github.com/via-network/bridge-relayer/pkg/store"
)

// PgStore is a database/sql-backed store.Store.
type PgStore struct {
	db *sql.DB
}

// New opens a connection pool against connString and verifies connectivity.
func New(connString string, maxOpenConns, maxIdleConns int) (*PgStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PgStore{db: db}, nil
}

func (s *PgStore) Close() error { return s.db.Close() }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return &store.Error{Kind: store.KindConflict, Op: op, Err: err}
	}
	return &store.Error{Kind: store.KindIO, Op: op, Err: err}
}

const messageColumns = `id, origin, status, source_tx_hash, dest_tx_hash, origin_block, dest_block,
	l1_batch_number, payload, event_type, subgraph_id, vault_ctrl_ref, created_at, updated_at`

func scanMessage(row interface{ Scan(dest ...any) error }) (*store.BridgeMessage, error) {
	m := &store.BridgeMessage{}
	var destTxHash sql.NullString
	var destBlock, l1BatchNumber, vaultCtrlRef sql.NullInt64
	if err := row.Scan(
		&m.ID, &m.Origin, &m.Status, &m.SourceTxHash, &destTxHash, &m.OriginBlock, &destBlock,
		&l1BatchNumber, &m.Payload, &m.EventType, &m.SubgraphID, &vaultCtrlRef, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if destTxHash.Valid {
		m.DestTxHash = destTxHash.String
	}
	if destBlock.Valid {
		b := uint64(destBlock.Int64)
		m.DestBlock = &b
	}
	if l1BatchNumber.Valid {
		b := uint64(l1BatchNumber.Int64)
		m.L1BatchNumber = &b
	}
	if vaultCtrlRef.Valid {
		m.VaultCtrlRef = &vaultCtrlRef.Int64
	}
	return m, nil
}

// UpsertMessage inserts a BridgeMessage if SourceTxHash is not already
// present, returning the existing row on conflict.
func (s *PgStore) UpsertMessage(ctx context.Context, f store.NewMessageFields) (*store.BridgeMessage, error) {
	status := f.Status
	if status == "" {
		status = store.StatusPending
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO bridge_messages (
			origin, status, source_tx_hash, dest_tx_hash, origin_block, payload, event_type, subgraph_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_tx_hash) DO UPDATE SET source_tx_hash = EXCLUDED.source_tx_hash
		RETURNING `+messageColumns,
		f.Origin, status, f.SourceTxHash, nullableStr(f.DestTxHash), f.OriginBlock, f.Payload, f.EventType, f.SubgraphID,
	)
	m, err := scanMessage(row)
	if err != nil {
		return nil, wrap("UpsertMessage", err)
	}
	return m, nil
}

func nullableStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *PgStore) findOneBy(ctx context.Context, column, value string) (*store.BridgeMessage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM bridge_messages WHERE `+column+` = $1`, value)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("findOneBy:"+column, err)
	}
	return m, nil
}

func (s *PgStore) FindBySourceHash(ctx context.Context, hash string) (*store.BridgeMessage, error) {
	return s.findOneBy(ctx, "source_tx_hash", hash)
}

func (s *PgStore) FindByDestHash(ctx context.Context, hash string) (*store.BridgeMessage, error) {
	return s.findOneBy(ctx, "dest_tx_hash", hash)
}

func (s *PgStore) FindBySubgraphID(ctx context.Context, subgraphID string) (*store.BridgeMessage, error) {
	return s.findOneBy(ctx, "subgraph_id", subgraphID)
}

func (s *PgStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.BridgeMessage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("queryMessages", err)
	}
	defer rows.Close()

	var out []*store.BridgeMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, wrap("queryMessages:scan", err)
		}
		out = append(out, m)
	}
	return out, wrap("queryMessages:rows", rows.Err())
}

func (s *PgStore) MessagesByStatus(ctx context.Context, status store.MessageStatus, origin store.Origin, limit int, maxBlock *uint64) ([]*store.BridgeMessage, error) {
	if maxBlock != nil {
		return s.queryMessages(ctx, `
			SELECT `+messageColumns+` FROM bridge_messages
			WHERE status = $1 AND origin = $2 AND origin_block <= $3
			ORDER BY created_at ASC LIMIT $4`, status, origin, *maxBlock, limit)
	}
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM bridge_messages
		WHERE status = $1 AND origin = $2
		ORDER BY created_at ASC LIMIT $3`, status, origin, limit)
}

func (s *PgStore) MessagesMissingBatchNumber(ctx context.Context, origin store.Origin, limit int) ([]*store.BridgeMessage, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM bridge_messages
		WHERE origin = $1 AND status = $2 AND l1_batch_number IS NULL
		ORDER BY created_at ASC LIMIT $3`, origin, store.StatusFinalized, limit)
}

func (s *PgStore) MessagesWithBatchNumber(ctx context.Context, origin store.Origin, limit int) ([]*store.BridgeMessage, error) {
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM bridge_messages
		WHERE origin = $1 AND status = $2 AND l1_batch_number IS NOT NULL
		ORDER BY l1_batch_number ASC LIMIT $3`, origin, store.StatusFinalized, limit)
}

func (s *PgStore) SetDestTxAndStatus(ctx context.Context, id int64, destTxHash string, destBlock uint64, status store.MessageStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bridge_messages SET dest_tx_hash = $1, dest_block = $2, status = $3, updated_at = now()
		WHERE id = $4`, destTxHash, destBlock, status, id)
	return wrap("SetDestTxAndStatus", err)
}

func (s *PgStore) SetL1BatchNumber(ctx context.Context, id int64, l1BatchNumber uint64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bridge_messages SET l1_batch_number = $1, updated_at = now() WHERE id = $2`, l1BatchNumber, id)
	return wrap("SetL1BatchNumber", err)
}

func (s *PgStore) SetMessageStatus(ctx context.Context, id int64, status store.MessageStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bridge_messages SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return wrap("SetMessageStatus", err)
}

func (s *PgStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return wrap(op, err)
	}
	return wrap(op, tx.Commit())
}

func (s *PgStore) UpdateStatusBatch(ctx context.Context, ids []int64, newStatus store.MessageStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "UpdateStatusBatch", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE bridge_messages SET status = $1, updated_at = now() WHERE id = ANY($2)`,
			newStatus, pq.Array(ids))
		return err
	})
}

func (s *PgStore) LinkToBatch(ctx context.Context, ids []int64, batchID int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "LinkToBatch", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE bridge_messages SET vault_ctrl_ref = $1, updated_at = now() WHERE id = ANY($2)`,
			batchID, pq.Array(ids))
		return err
	})
}

func (s *PgStore) LinkAndUpdateStatus(ctx context.Context, ids []int64, batchID int64, newStatus store.MessageStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "LinkAndUpdateStatus", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE bridge_messages SET vault_ctrl_ref = $1, status = $2, updated_at = now() WHERE id = ANY($3)`,
			batchID, newStatus, pq.Array(ids))
		return err
	})
}

func (s *PgStore) StalePending(ctx context.Context, origin store.Origin, olderThan time.Duration, limit int) ([]*store.BridgeMessage, error) {
	cutoff := time.Now().Add(-olderThan)
	return s.queryMessages(ctx, `
		SELECT `+messageColumns+` FROM bridge_messages
		WHERE origin = $1 AND status = $2 AND created_at < $3
		ORDER BY created_at ASC LIMIT $4`, origin, store.StatusPending, cutoff, limit)
}

const batchColumns = `id, transaction_hash, l1_batch_number, l1_vault_address, total_shares, message_hash_count, status, created_at, updated_at`

func scanBatch(row interface{ Scan(dest ...any) error }) (*store.VaultControllerBatch, error) {
	b := &store.VaultControllerBatch{}
	var totalShares string
	if err := row.Scan(
		&b.ID, &b.TransactionHash, &b.L1BatchNumber, &b.L1VaultAddress, &totalShares,
		&b.MessageHashCount, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	dec, err := decimal.NewFromString(totalShares)
	if err != nil {
		return nil, err
	}
	b.TotalShares = dec
	return b, nil
}

func (s *PgStore) CreateVaultControllerBatch(ctx context.Context, batch *store.VaultControllerBatch) (*store.VaultControllerBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO vault_controller_batches (
			transaction_hash, l1_batch_number, l1_vault_address, total_shares, message_hash_count, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+batchColumns,
		batch.TransactionHash, batch.L1BatchNumber, batch.L1VaultAddress,
		batch.TotalShares.String(), batch.MessageHashCount, batch.Status,
	)
	created, err := scanBatch(row)
	if err != nil {
		return nil, wrap("CreateVaultControllerBatch", err)
	}
	return created, nil
}

func (s *PgStore) PendingVaultBatches(ctx context.Context, limit int) ([]*store.VaultControllerBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+batchColumns+` FROM vault_controller_batches WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		store.BatchPending, limit)
	if err != nil {
		return nil, wrap("PendingVaultBatches", err)
	}
	defer rows.Close()
	var out []*store.VaultControllerBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, wrap("PendingVaultBatches:scan", err)
		}
		out = append(out, b)
	}
	return out, wrap("PendingVaultBatches:rows", rows.Err())
}

func (s *PgStore) StaleVaultBatches(ctx context.Context, olderThan time.Duration, limit int) ([]*store.VaultControllerBatch, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+batchColumns+` FROM vault_controller_batches
		WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`,
		store.BatchPending, cutoff, limit)
	if err != nil {
		return nil, wrap("StaleVaultBatches", err)
	}
	defer rows.Close()
	var out []*store.VaultControllerBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, wrap("StaleVaultBatches:scan", err)
		}
		out = append(out, b)
	}
	return out, wrap("StaleVaultBatches:rows", rows.Err())
}

func (s *PgStore) SetVaultBatchStatus(ctx context.Context, id int64, status store.BatchStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE vault_controller_batches SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return wrap("SetVaultBatchStatus", err)
}

func (s *PgStore) Cursor(ctx context.Context, streamName string) (uint64, error) {
	var ordinal int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_processed_ordinal FROM event_cursors WHERE stream_name = $1`, streamName).Scan(&ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, wrap("Cursor", err)
	}
	return uint64(ordinal), nil
}

func (s *PgStore) AdvanceCursor(ctx context.Context, streamName string, ordinal uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_cursors (stream_name, last_processed_ordinal)
		VALUES ($1, $2)
		ON CONFLICT (stream_name) DO UPDATE
		SET last_processed_ordinal = GREATEST(event_cursors.last_processed_ordinal, EXCLUDED.last_processed_ordinal),
			updated_at = now()`,
		streamName, ordinal)
	return wrap("AdvanceCursor", err)
}

var _ store.Store = (*PgStore)(nil)
