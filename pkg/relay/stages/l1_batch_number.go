package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/signer"
)

// L1BatchNumber stamps messagesMissingBatchNumber once their L2 receipt
// reports the L1 batch it was sequenced into. Via only.
type L1BatchNumber struct{}

func (L1BatchNumber) Name() string { return "l1_batch_number" }

func (L1BatchNumber) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	messages, err := sc.Store.MessagesMissingBatchNumber(ctx, sc.Origin, sc.BatchSize)
	if err != nil {
		return false, fmt.Errorf("list messages missing batch number: %w", err)
	}

	progressed := false
	for _, msg := range messages {
		batchNumber, ok, err := l1BatchNumberOf(ctx, sc.Sender, msg.SourceTxHash)
		if err != nil {
			sc.Logger.Error("fetch l1 batch number failed", zap.Int64("id", msg.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue // not yet included in an L1 batch
		}

		if err := sc.Store.SetL1BatchNumber(ctx, msg.ID, batchNumber); err != nil {
			sc.Logger.Error("persist l1 batch number failed", zap.Int64("id", msg.ID), zap.Error(err))
			continue
		}
		progressed = true
	}

	return progressed, nil
}

// l1BatchNumberOf returns the L1 batch number an L2 transaction was
// sequenced into, or ok=false if the receipt doesn't report one yet.
func l1BatchNumberOf(ctx context.Context, sender signer.Sender, sourceTxHash string) (uint64, bool, error) {
	raw, err := sender.RawRPC(ctx, signer.ChainVia, "eth_getTransactionReceipt", sourceTxHash)
	if err != nil {
		return 0, false, fmt.Errorf("get l2 receipt: %w", err)
	}

	n, ok := parseL1BatchNumber(raw)
	if !ok {
		return 0, false, nil
	}
	return n, true, nil
}

func parseL1BatchNumber(raw []byte) (uint64, bool) {
	var receipt struct {
		L1BatchNumber string `json:"l1BatchNumber"`
	}
	if err := json.Unmarshal(raw, &receipt); err != nil || receipt.L1BatchNumber == "" || receipt.L1BatchNumber == "0x" {
		return 0, false
	}
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(receipt.L1BatchNumber, "0x"), 16); !ok || n.Sign() == 0 {
		return 0, false
	}
	return n.Uint64(), true
}
