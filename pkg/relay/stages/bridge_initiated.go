package stages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/indexer"
	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// BridgeInitiated observes MessageSent events on the origin chain and
// broadcasts receiveMessage on the destination bridge contract.
type BridgeInitiated struct{}

func (BridgeInitiated) Name() string { return "bridge_initiated" }

func (BridgeInitiated) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	head, err := sc.Sender.BlockNumber(ctx, originChain(sc.Origin))
	if err != nil {
		return false, fmt.Errorf("get origin head: %w", err)
	}
	if head < sc.WaitBlockConfirmations {
		return false, nil
	}
	ceiling := head - sc.WaitBlockConfirmations

	stream := cursorName(sc.Origin, indexer.StreamMessageSent)
	from, err := sc.Store.Cursor(ctx, stream)
	if err != nil {
		return false, fmt.Errorf("get message sent cursor: %w", err)
	}

	events, err := sc.Indexer.EventsSinceBlock(ctx, indexer.StreamMessageSent, string(sc.Origin), from, ceiling, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("fetch message sent events: %w", err)
	}

	progressed := false
	destContract := destBridgeAddress(sc)
	destChain := destChainOf(sc.Origin)

	// resolvedThrough only advances past blocks whose events were all
	// either already observed or freshly persisted; it stops at the first
	// unresolved event so a failed send/persist is retried next poll
	// instead of being skipped by an advanced cursor.
	resolvedThrough := from
	stalled := false

	for _, ev := range events {
		existing, err := sc.Store.FindBySourceHash(ctx, ev.TransactionHash)
		if err != nil {
			sc.Logger.Error("lookup by source hash failed", zap.String("tx", ev.TransactionHash), zap.Error(err))
			stalled = true
			continue
		}
		if existing != nil {
			if !stalled {
				resolvedThrough = ev.BlockNumber
			}
			continue // duplicate event, already observed
		}

		destTxHash, err := sc.Sender.SendContractCall(ctx, destChain, destContract, "receiveMessage", ev.Payload)
		if err != nil {
			sc.Logger.Error("broadcast receiveMessage failed",
				zap.String("source_tx", ev.TransactionHash), zap.Error(err))
			stalled = true
			continue
		}

		if _, err := sc.Store.UpsertMessage(ctx, store.NewMessageFields{
			Origin:       sc.Origin,
			SourceTxHash: ev.TransactionHash,
			DestTxHash:   destTxHash,
			OriginBlock:  ev.BlockNumber,
			Payload:      ev.Payload,
			EventType:    eventTypeFor(sc.Origin),
			SubgraphID:   ev.ID,
			Status:       store.StatusPending,
		}); err != nil {
			sc.Logger.Error("persist new message failed",
				zap.String("source_tx", ev.TransactionHash), zap.String("dest_tx", destTxHash), zap.Error(err))
			stalled = true
			continue
		}

		progressed = true
		if !stalled {
			resolvedThrough = ev.BlockNumber
		}
	}

	if resolvedThrough > from {
		if err := sc.Store.AdvanceCursor(ctx, stream, resolvedThrough); err != nil {
			sc.Logger.Error("advance message sent cursor failed", zap.Error(err))
		}
	}

	return progressed, nil
}
