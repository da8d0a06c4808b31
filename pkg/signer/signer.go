// Package signer implements the Signed-Sender (C3): one signing identity per
// chain, with serialized nonce acquisition so that concurrent broadcasts on
// the same chain never collide.
package signer

import (
	"context"
	"math/big"
)

// Chain tags which network a Sender call targets.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainVia      Chain = "via"
)

// GasHints carries optional gas parameters for sendRaw/sendContractCall. For
// Ethereum, zero values mean "compute EIP-1559 fees from the network"; for
// Via, the fixed configured gas limit and gas price are used verbatim.
type GasHints struct {
	GasLimit      uint64
	GasPrice      *big.Int // legacy / Via fixed gas price
	GasPerPubdata *big.Int // carried but unused: EVMSender builds legacy and EIP-1559 transactions, neither of which has a per-pubdata field
}

// ReceiptStatus mirrors the two terminal on-chain outcomes a receipt can
// report.
type ReceiptStatus int

const (
	ReceiptSuccess ReceiptStatus = iota
	ReceiptReverted
)

// Receipt is the minimal on-chain confirmation the relay stages consume.
type Receipt struct {
	Status      ReceiptStatus
	BlockNumber uint64
}

// Sender is the C3 contract. Implementations must serialize nonce reads and
// submissions per chain: the lock is acquired before querying the pending
// nonce, held while the transaction is built, signed, and broadcast, and
// released before waiting for inclusion.
type Sender interface {
	// SendRaw builds, signs, and broadcasts a transaction carrying data to
	// to, returning the broadcast hash once accepted by the network (not
	// once mined).
	SendRaw(ctx context.Context, chain Chain, to string, data []byte, value *big.Int, gas GasHints) (txHash string, err error)

	// SendContractCall ABI-encodes method(args...) against contract's ABI
	// and broadcasts it the same way as SendRaw.
	SendContractCall(ctx context.Context, chain Chain, contract string, method string, args ...any) (txHash string, err error)

	// Receipt returns nil if the transaction is not yet mined.
	Receipt(ctx context.Context, chain Chain, txHash string) (*Receipt, error)

	BlockNumber(ctx context.Context, chain Chain) (uint64, error)

	// RawRPC invokes an arbitrary JSON-RPC method against chain's
	// transport, needed for Via's zks_getL1BatchDetails.
	RawRPC(ctx context.Context, chain Chain, method string, params ...any) (json []byte, err error)
}
