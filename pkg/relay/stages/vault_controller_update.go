package stages

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/indexer"
	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// VaultControllerUpdate aggregates messages sharing an (l1BatchNumber,
// l1VaultAddress) pair into one updateWithdrawalState call against the
// vault contract. Via only.
type VaultControllerUpdate struct{}

func (VaultControllerUpdate) Name() string { return "vault_controller_update" }

type vaultGroupItem struct {
	message *store.BridgeMessage
	hash    [32]byte
	shares  decimal.Decimal
}

func (VaultControllerUpdate) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	messages, err := sc.Store.MessagesWithBatchNumber(ctx, sc.Origin, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("list messages with batch number: %w", err)
	}
	if len(messages) == 0 {
		return false, nil
	}

	groups := make(map[groupKey][]vaultGroupItem)
	var groupOrder []groupKey

	hashes := make([]string, 0, len(messages))
	for _, msg := range messages {
		hashes = append(hashes, msg.DestTxHash)
	}
	executed, err := sc.Indexer.EventsByTxHashes(ctx, indexer.StreamMessageWithdrawalExec, string(sc.Origin), hashes)
	if err != nil {
		return false, fmt.Errorf("fetch withdrawal executed events: %w", err)
	}
	eventByTxHash := make(map[string]indexer.Event, len(executed))
	for _, ev := range executed {
		eventByTxHash[ev.TransactionHash] = ev
	}

	for _, msg := range messages {
		ev, ok := eventByTxHash[msg.DestTxHash]
		if !ok {
			sc.Logger.Warn("no matching MessageWithdrawalExecuted event, skipping",
				zap.Int64("id", msg.ID), zap.String("dest_tx", msg.DestTxHash))
			continue
		}

		vaultNonce, ok := new(big.Int).SetString(ev.VaultNonce, 10)
		if !ok {
			sc.Logger.Error("invalid vaultNonce, skipping", zap.Int64("id", msg.ID), zap.String("vault_nonce", ev.VaultNonce))
			continue
		}
		shares, err := decimal.NewFromString(ev.Shares)
		if err != nil {
			sc.Logger.Error("invalid shares, skipping", zap.Int64("id", msg.ID), zap.Error(err))
			continue
		}

		hash, err := signer.MessageHash(vaultNonce, common.HexToAddress(ev.Vault), common.HexToAddress(ev.Receiver), shares.BigInt())
		if err != nil {
			sc.Logger.Error("compute message hash failed", zap.Int64("id", msg.ID), zap.Error(err))
			continue
		}

		key := groupKey{l1BatchNumber: *msg.L1BatchNumber, l1VaultAddress: ev.Vault}
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], vaultGroupItem{message: msg, hash: hash, shares: shares})
	}

	progressed := false
	for _, key := range groupOrder {
		if err := handleVaultGroup(ctx, sc, key, groups[key]); err != nil {
			sc.Logger.Error("vault controller group update failed",
				zap.Uint64("l1_batch_number", key.l1BatchNumber),
				zap.String("l1_vault_address", key.l1VaultAddress), zap.Error(err))
			continue
		}
		progressed = true
	}

	return progressed, nil
}

type groupKey struct {
	l1BatchNumber  uint64
	l1VaultAddress string
}

func handleVaultGroup(ctx context.Context, sc *relay.StageContext, key groupKey, items []vaultGroupItem) error {
	totalShares := decimal.Zero
	hashes := make([][32]byte, 0, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		totalShares = totalShares.Add(item.shares)
		hashes = append(hashes, item.hash)
		ids = append(ids, item.message.ID)
	}

	txHash, err := sc.Sender.SendContractCall(ctx, signer.ChainEthereum, key.l1VaultAddress, "updateWithdrawalState",
		hashes, new(big.Int).SetUint64(key.l1BatchNumber), totalShares.BigInt())
	if err != nil {
		return fmt.Errorf("broadcast updateWithdrawalState: %w", err)
	}

	receipt, err := awaitReceipt(ctx, sc.Sender, signer.ChainEthereum, txHash)
	if err != nil {
		return fmt.Errorf("await updateWithdrawalState receipt: %w", err)
	}
	if receipt.Status != signer.ReceiptSuccess {
		return fmt.Errorf("updateWithdrawalState reverted: tx=%s", txHash)
	}

	batch, err := sc.Store.CreateVaultControllerBatch(ctx, &store.VaultControllerBatch{
		TransactionHash:  txHash,
		L1BatchNumber:    key.l1BatchNumber,
		L1VaultAddress:   key.l1VaultAddress,
		TotalShares:      totalShares,
		MessageHashCount: len(hashes),
		Status:           store.BatchPending,
	})
	if err != nil {
		return fmt.Errorf("create vault controller batch: %w", err)
	}

	if err := sc.Store.LinkAndUpdateStatus(ctx, ids, batch.ID, store.StatusVaultUpdated); err != nil {
		return fmt.Errorf("link messages to batch and update status: %w", err)
	}

	return nil
}
