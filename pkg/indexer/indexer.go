// Package indexer defines the Event Source (C1) capability contract and its
// two interchangeable backends: a direct-relational mirror of the external
// subgraph's tables, and a remote query client.
package indexer

import "context"

// Stream names the four external event kinds the indexer exposes.
type Stream string

const (
	StreamMessageSent              Stream = "MessageSent"
	StreamDepositExecuted          Stream = "DepositExecuted"
	StreamMessageWithdrawalExec    Stream = "MessageWithdrawalExecuted"
	StreamWithdrawalStateUpdated   Stream = "WithdrawalStateUpdated"
)

// Event is the common envelope every indexer row carries; the Kind-specific
// fields below are populated according to which Stream produced it.
type Event struct {
	ID              string
	Kind            Stream
	BlockNumber     uint64
	TransactionHash string
	BlockTimestamp  int64

	// MessageSent
	Payload []byte

	// DepositExecuted / MessageWithdrawalExecuted
	VaultNonce string // decimal string, arbitrary precision
	Vault      string
	Receiver   string
	Shares     string // decimal string, arbitrary precision

	// WithdrawalStateUpdated
	L1Batch       uint64
	ExchangeRate  string
	MessageCount  int
}

// Source is the C1 capability set. Results are always ordered by
// (blockNumber ASC, id ASC) for determinism.
type Source interface {
	// EventsSinceBlock returns events on stream within (fromBlock,
	// toBlock] for …Executed-family streams, or [fromBlock, toBlock] for
	// MessageSent — see the per-stream inclusive/exclusive note in the
	// design docs — bounded by limit rows.
	EventsSinceBlock(ctx context.Context, stream Stream, origin string, fromBlock, toBlock uint64, limit int) ([]Event, error)

	// EventsByTxHashes looks up events on stream whose transactionHash is
	// in hashes.
	EventsByTxHashes(ctx context.Context, stream Stream, origin string, hashes []string) ([]Event, error)

	// WithdrawalStateEvents returns WithdrawalStateUpdated rows
	// referencing any of batchNumbers, bounded by maxBlock and limit.
	WithdrawalStateEvents(ctx context.Context, batchNumbers []uint64, maxBlock uint64, limit int) ([]Event, error)

	Close() error
}
