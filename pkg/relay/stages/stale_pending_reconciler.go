package stages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// StalePendingReconciler (C7) resolves BridgeMessage rows that have sat in
// Pending past the configured timeout by checking their destination
// receipt, and — for Via — sweeps VaultControllerBatch rows whose L1
// broadcast has similarly aged out.
type StalePendingReconciler struct{}

func (StalePendingReconciler) Name() string { return "stale_pending_reconciler" }

func (StalePendingReconciler) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	progressed := false

	stale, err := sc.Store.StalePending(ctx, sc.Origin, sc.PendingTxTimeout, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("list stale pending messages: %w", err)
	}

	destChain := destChainOf(sc.Origin)
	for _, msg := range stale {
		receipt, err := sc.Sender.Receipt(ctx, destChain, msg.DestTxHash)
		if err != nil {
			sc.Logger.Error("get receipt failed", zap.Int64("id", msg.ID), zap.Error(err))
			continue
		}

		switch {
		case receipt == nil:
			if err := sc.Store.SetMessageStatus(ctx, msg.ID, store.StatusFailed); err != nil {
				sc.Logger.Error("mark message failed failed", zap.Int64("id", msg.ID), zap.Error(err))
				continue
			}
		case receipt.Status == signer.ReceiptSuccess:
			if err := sc.Store.SetDestTxAndStatus(ctx, msg.ID, msg.DestTxHash, receipt.BlockNumber, store.StatusFinalized); err != nil {
				sc.Logger.Error("finalize stale message failed", zap.Int64("id", msg.ID), zap.Error(err))
				continue
			}
		default:
			if err := sc.Store.SetMessageStatus(ctx, msg.ID, store.StatusFailed); err != nil {
				sc.Logger.Error("mark reverted message failed failed", zap.Int64("id", msg.ID), zap.Error(err))
				continue
			}
		}
		progressed = true
	}

	if sc.Origin == store.OriginVia {
		if reconciled, err := reconcileStaleVaultBatches(ctx, sc); err != nil {
			sc.Logger.Error("reconcile stale vault batches failed", zap.Error(err))
		} else if reconciled {
			progressed = true
		}
	}

	return progressed, nil
}

func reconcileStaleVaultBatches(ctx context.Context, sc *relay.StageContext) (bool, error) {
	stale, err := sc.Store.StaleVaultBatches(ctx, sc.PendingTxTimeout, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("list stale vault batches: %w", err)
	}

	progressed := false
	for _, batch := range stale {
		receipt, err := sc.Sender.Receipt(ctx, signer.ChainEthereum, batch.TransactionHash)
		if err != nil {
			sc.Logger.Error("get vault batch receipt failed", zap.Int64("id", batch.ID), zap.Error(err))
			continue
		}

		var newStatus store.BatchStatus
		switch {
		case receipt == nil:
			newStatus = store.BatchFailed
		case receipt.Status == signer.ReceiptSuccess:
			newStatus = store.BatchConfirmed
		default:
			newStatus = store.BatchFailed
		}

		if err := sc.Store.SetVaultBatchStatus(ctx, batch.ID, newStatus); err != nil {
			sc.Logger.Error("update stale vault batch status failed", zap.Int64("id", batch.ID), zap.Error(err))
			continue
		}
		progressed = true
	}

	return progressed, nil
}
