// Package relay implements the Worker Runtime (C5): one task per
// (origin, stage) pair, each polling its stage handler until it reports no
// further progress, then sleeping until the next tick or cancellation.
package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/indexer"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// StageContext is the explicit dependency bundle every stage handler closes
// over, replacing per-handler inheritance from a shared base type with
// plain composition.
type StageContext struct {
	Store   store.Store
	Indexer indexer.Source
	Sender  signer.Sender
	Logger  *zap.Logger

	Origin store.Origin

	// BatchSize bounds how many rows/events a single Handle call processes.
	BatchSize int

	// WaitBlockConfirmations is the number of confirmations Handle should
	// require before treating an origin-chain event as final.
	WaitBlockConfirmations uint64

	// WithdrawalFinalizationConfirmations additionally gates
	// WithdrawalStateUpdated processing on Via.
	WithdrawalFinalizationConfirmations uint64

	// PendingTxTimeout is how long a Pending message may sit unconfirmed
	// before StalePendingReconciler reconciles it.
	PendingTxTimeout time.Duration

	// Contract addresses, keyed by which chain the stage writes to.
	EthereumBridgeAddress string
	ViaBridgeAddress      string
	ViaVaultAddress       string
}

// Stage is a single bridge processing step. Handle processes at most one
// batch of work and reports whether it made progress — a false result with
// a nil error tells the worker runtime to sleep until the next poll tick.
type Stage interface {
	Name() string
	Handle(ctx context.Context, sc *StageContext) (progressed bool, err error)
}
