package stages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// WithdrawalStateUpdated watches for the vault contract's
// WithdrawalStateUpdated event confirming a pending batch's settlement, and
// transitions matching batches to ReadyToClaim. Via only.
type WithdrawalStateUpdated struct{}

func (WithdrawalStateUpdated) Name() string { return "withdrawal_state_updated" }

func (WithdrawalStateUpdated) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	batches, err := sc.Store.PendingVaultBatches(ctx, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("list pending vault batches: %w", err)
	}
	if len(batches) == 0 {
		return false, nil
	}

	head, err := sc.Sender.BlockNumber(ctx, originChain(store.OriginEthereum))
	if err != nil {
		return false, fmt.Errorf("get L1 head: %w", err)
	}
	if head < sc.WithdrawalFinalizationConfirmations {
		return false, nil
	}
	maxBlock := head - sc.WithdrawalFinalizationConfirmations

	batchNumbers := make([]uint64, 0, len(batches))
	batchByNumber := make(map[uint64]*store.VaultControllerBatch, len(batches))
	for _, b := range batches {
		batchNumbers = append(batchNumbers, b.L1BatchNumber)
		batchByNumber[b.L1BatchNumber] = b
	}

	events, err := sc.Indexer.WithdrawalStateEvents(ctx, batchNumbers, maxBlock, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("fetch withdrawal state events: %w", err)
	}

	progressed := false
	for _, ev := range events {
		batch, ok := batchByNumber[ev.L1Batch]
		if !ok {
			continue
		}
		if err := sc.Store.SetVaultBatchStatus(ctx, batch.ID, store.BatchReadyToClaim); err != nil {
			sc.Logger.Error("update vault batch status failed", zap.Int64("id", batch.ID), zap.Error(err))
			continue
		}
		progressed = true
	}

	return progressed, nil
}
