// Package stages implements the seven Stage Handlers (C4) against the
// explicit StageContext dependency bundle.
package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/via-network/bridge-relayer/pkg/indexer"
	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
)

const (
	receiptPollInterval = 2 * time.Second
	receiptWaitTimeout  = 2 * time.Minute
)

// awaitReceipt polls for a transaction receipt until it appears or
// receiptWaitTimeout elapses. The sender's per-chain nonce lock is never
// held across this wait — it was already released by the broadcast call.
func awaitReceipt(ctx context.Context, sender signer.Sender, chain signer.Chain, txHash string) (*signer.Receipt, error) {
	deadline := time.Now().Add(receiptWaitTimeout)
	for {
		receipt, err := sender.Receipt(ctx, chain, txHash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for receipt of %s", txHash)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}

// originChain maps a BridgeMessage origin to the signer.Chain that chain's
// RPC traffic goes through.
func originChain(o store.Origin) signer.Chain {
	if o == store.OriginVia {
		return signer.ChainVia
	}
	return signer.ChainEthereum
}

// destChainOf returns the signer.Chain the opposite (destination) chain
// uses.
func destChainOf(o store.Origin) signer.Chain {
	return originChain(o.Opposite())
}

// destBridgeAddress returns the bridge contract address on the destination
// chain for messages originating at o.
func destBridgeAddress(sc *relay.StageContext) string {
	if sc.Origin == store.OriginVia {
		return sc.EthereumBridgeAddress
	}
	return sc.ViaBridgeAddress
}

// eventTypeFor returns the human-readable tag persisted as BridgeMessage's
// eventType for a MessageSent event observed at origin o: deposits
// (Ethereum origin) are tagged DepositMessageSent, withdrawals (Via origin)
// WithdrawalSent.
func eventTypeFor(o store.Origin) string {
	if o == store.OriginVia {
		return "WithdrawalSent"
	}
	return "DepositMessageSent"
}

// cursorName derives the EventCursor stream name for a (origin, stream)
// pair, e.g. "ethereum:MessageSent". BridgeInitiated and BridgeFinalize use
// it as their persistent high-water mark instead of re-deriving one from
// stored BridgeMessage rows.
func cursorName(o store.Origin, stream indexer.Stream) string {
	return string(o) + ":" + string(stream)
}

// executedStreamFor returns the indexer stream that reports completion of a
// message originating at o: deposits (Ethereum origin) execute on Via as
// DepositExecuted, withdrawals (Via origin) execute on Ethereum as
// MessageWithdrawalExecuted.
func executedStreamFor(o store.Origin) indexer.Stream {
	if o == store.OriginVia {
		return indexer.StreamMessageWithdrawalExec
	}
	return indexer.StreamDepositExecuted
}
