package stages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// BridgeFinalize observes the destination chain's executed-message event
// and advances matching Pending rows to Finalized.
type BridgeFinalize struct{}

func (BridgeFinalize) Name() string { return "bridge_finalize" }

func (BridgeFinalize) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	destChain := destChainOf(sc.Origin)

	head, err := sc.Sender.BlockNumber(ctx, destChain)
	if err != nil {
		return false, fmt.Errorf("get destination head: %w", err)
	}
	if head < sc.WaitBlockConfirmations {
		return false, nil
	}
	ceiling := head - sc.WaitBlockConfirmations

	stream := executedStreamFor(sc.Origin)
	cursorKey := cursorName(sc.Origin, stream)
	from, err := sc.Store.Cursor(ctx, cursorKey)
	if err != nil {
		return false, fmt.Errorf("get executed cursor: %w", err)
	}

	events, err := sc.Indexer.EventsSinceBlock(ctx, stream, string(sc.Origin), from, ceiling, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("fetch executed events: %w", err)
	}

	progressed := false
	// resolvedThrough only advances past blocks whose events were fully
	// handled (finalized, or skipped because they don't match a pending
	// message); it stops at the first lookup/update failure so that event
	// is retried next poll instead of being skipped by an advanced cursor.
	resolvedThrough := from
	stalled := false

	for _, ev := range events {
		msg, err := sc.Store.FindByDestHash(ctx, ev.TransactionHash)
		if err != nil {
			sc.Logger.Error("lookup by dest hash failed", zap.String("tx", ev.TransactionHash), zap.Error(err))
			stalled = true
			continue
		}
		if msg == nil || msg.Status != store.StatusPending {
			if !stalled {
				resolvedThrough = ev.BlockNumber
			}
			continue
		}

		if err := sc.Store.SetDestTxAndStatus(ctx, msg.ID, ev.TransactionHash, ev.BlockNumber, store.StatusFinalized); err != nil {
			sc.Logger.Error("finalize message failed", zap.Int64("id", msg.ID), zap.Error(err))
			stalled = true
			continue
		}
		progressed = true
		if !stalled {
			resolvedThrough = ev.BlockNumber
		}
	}

	if resolvedThrough > from {
		if err := sc.Store.AdvanceCursor(ctx, cursorKey, resolvedThrough); err != nil {
			sc.Logger.Error("advance executed cursor failed", zap.Error(err))
		}
	}

	return progressed, nil
}
