package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
)

var zeroHash32 = "0x" + strings.Repeat("0", 64)

// L1BatchFinalized checks whether a Via batch's executeTxHash has appeared
// on L1 and, if so, advances its messages to L1BatchFinalized. Via only,
// optional: nothing downstream currently consumes this status, it exists
// for forward compatibility.
type L1BatchFinalized struct{}

func (L1BatchFinalized) Name() string { return "l1_batch_finalized" }

func (L1BatchFinalized) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	finalized, err := sc.Store.MessagesByStatus(ctx, store.StatusFinalized, sc.Origin, sc.BatchSize, nil)
	if err != nil {
		return false, fmt.Errorf("list finalized messages: %w", err)
	}
	vaultUpdated, err := sc.Store.MessagesByStatus(ctx, store.StatusVaultUpdated, sc.Origin, sc.BatchSize, nil)
	if err != nil {
		return false, fmt.Errorf("list vault updated messages: %w", err)
	}
	candidates := append(finalized, vaultUpdated...)

	checked := make(map[uint64]bool)
	progressed := false

	for _, msg := range candidates {
		if msg.Status != store.StatusFinalized && msg.Status != store.StatusVaultUpdated {
			continue
		}
		if msg.L1BatchNumber == nil || checked[*msg.L1BatchNumber] {
			continue
		}

		executed, err := isL1BatchExecuted(ctx, sc.Sender, *msg.L1BatchNumber)
		checked[*msg.L1BatchNumber] = true
		if err != nil {
			sc.Logger.Error("check l1 batch execution failed",
				zap.Uint64("l1_batch_number", *msg.L1BatchNumber), zap.Error(err))
			continue
		}
		if !executed {
			continue
		}

		for _, m := range candidates {
			if m.L1BatchNumber != nil && *m.L1BatchNumber == *msg.L1BatchNumber &&
				(m.Status == store.StatusFinalized || m.Status == store.StatusVaultUpdated) {
				if err := sc.Store.SetMessageStatus(ctx, m.ID, store.StatusL1BatchFinalized); err != nil {
					sc.Logger.Error("set l1 batch finalized failed", zap.Int64("id", m.ID), zap.Error(err))
					continue
				}
				progressed = true
			}
		}
	}

	return progressed, nil
}

func isL1BatchExecuted(ctx context.Context, sender signer.Sender, l1BatchNumber uint64) (bool, error) {
	raw, err := sender.RawRPC(ctx, signer.ChainVia, "zks_getL1BatchDetails", l1BatchNumber)
	if err != nil {
		return false, fmt.Errorf("zks_getL1BatchDetails: %w", err)
	}

	var details struct {
		ExecuteTxHash *string `json:"executeTxHash"`
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return false, fmt.Errorf("parse l1 batch details: %w", err)
	}
	if details.ExecuteTxHash == nil || *details.ExecuteTxHash == "" || strings.EqualFold(*details.ExecuteTxHash, zeroHash32) {
		return false, nil
	}
	return true, nil
}
