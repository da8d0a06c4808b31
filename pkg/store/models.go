// Package store defines the relayer-owned persistent entities and the
// storage contract the relay stages depend on.
package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origin tags which chain a BridgeMessage originated on.
type Origin string

const (
	OriginEthereum Origin = "ethereum"
	OriginVia      Origin = "via"
)

// Opposite returns the destination chain for a given origin.
func (o Origin) Opposite() Origin {
	if o == OriginEthereum {
		return OriginVia
	}
	return OriginEthereum
}

// MessageStatus is the BridgeMessage lifecycle tag.
type MessageStatus string

const (
	StatusNew              MessageStatus = "new"
	StatusPending          MessageStatus = "pending"
	StatusFinalized        MessageStatus = "finalized"
	StatusFailed           MessageStatus = "failed"
	StatusRefunded         MessageStatus = "refunded"
	StatusL1BatchFinalized MessageStatus = "l1_batch_finalized"
	StatusVaultUpdated     MessageStatus = "vault_updated"
)

// BatchStatus is the VaultControllerBatch lifecycle tag.
type BatchStatus string

const (
	BatchPending      BatchStatus = "pending"
	BatchConfirmed    BatchStatus = "confirmed"
	BatchFailed       BatchStatus = "failed"
	BatchReadyToClaim BatchStatus = "ready_to_claim"
)

// BridgeMessage is the central record tracking one cross-chain message from
// observation on the origin chain through finalization (and, for Via
// withdrawals, through vault-controller settlement) on the destination.
type BridgeMessage struct {
	ID            int64
	Origin        Origin
	Status        MessageStatus
	SourceTxHash  string // 0x-prefixed, lowercase, 32 bytes
	DestTxHash    string
	OriginBlock   uint64
	DestBlock     *uint64
	L1BatchNumber *uint64
	Payload       []byte
	EventType     string
	SubgraphID    string
	VaultCtrlRef  *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VaultControllerBatch aggregates BridgeMessages sharing the same
// (l1BatchNumber, l1VaultAddress) pair into one L1 settlement transaction.
type VaultControllerBatch struct {
	ID               int64
	TransactionHash  string
	L1BatchNumber    uint64
	L1VaultAddress   string
	TotalShares      decimal.Decimal
	MessageHashCount int
	Status           BatchStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EventCursor tracks the last processed ordinal for one named event stream.
// Cursors are upserted and never regress.
type EventCursor struct {
	StreamName           string
	LastProcessedOrdinal uint64
	UpdatedAt            time.Time
}

// NewMessageFields is the input to upserting a BridgeMessage the first time
// it is observed.
type NewMessageFields struct {
	Origin       Origin
	SourceTxHash string
	DestTxHash   string
	OriginBlock  uint64
	Payload      []byte
	EventType    string
	SubgraphID   string
	Status       MessageStatus
}
