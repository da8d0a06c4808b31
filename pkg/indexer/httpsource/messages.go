package httpsource

import (
	"encoding/hex"
	"strings"

	"github.com/via-network/bridge-relayer/pkg/indexer"
)

type eventsSinceBlockRequest struct {
	Stream    string `json:"stream"`
	Origin    string `json:"origin"`
	FromBlock uint64 `json:"fromBlock"`
	ToBlock   uint64 `json:"toBlock"`
	Limit     int    `json:"limit"`
}

type eventsByTxHashesRequest struct {
	Stream            string   `json:"stream"`
	Origin            string   `json:"origin"`
	TransactionHashes []string `json:"transactionHashes"`
}

type withdrawalStateEventsRequest struct {
	L1BatchNumbers []uint64 `json:"l1BatchNumbers"`
	MaxBlock       uint64   `json:"maxBlock"`
	Limit          int      `json:"limit"`
}

// wireEvent is the JSON query-document shape the remote indexer returns;
// fields unused by a given stream are simply omitted by the server.
type wireEvent struct {
	ID              string `json:"id"`
	BlockNumber     uint64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
	BlockTimestamp  int64  `json:"blockTimestamp"`

	Payload string `json:"payload,omitempty"` // hex-encoded

	VaultNonce string `json:"vaultNonce,omitempty"`
	Vault      string `json:"vault,omitempty"`
	Receiver   string `json:"receiver,omitempty"`
	Shares     string `json:"shares,omitempty"`

	L1Batch      uint64 `json:"l1Batch,omitempty"`
	ExchangeRate string `json:"exchangeRate,omitempty"`
	MessageCount int    `json:"messageCount,omitempty"`
}

type eventsResponse struct {
	Events []wireEvent `json:"events"`
}

func (r *eventsResponse) toEvents(kind indexer.Stream) []indexer.Event {
	events := make([]indexer.Event, 0, len(r.Events))
	for _, w := range r.Events {
		events = append(events, indexer.Event{
			ID:              w.ID,
			Kind:            kind,
			BlockNumber:     w.BlockNumber,
			TransactionHash: w.TransactionHash,
			BlockTimestamp:  w.BlockTimestamp,
			Payload:         decodeHex(w.Payload),
			VaultNonce:      w.VaultNonce,
			Vault:           w.Vault,
			Receiver:        w.Receiver,
			Shares:          w.Shares,
			L1Batch:         w.L1Batch,
			ExchangeRate:    w.ExchangeRate,
			MessageCount:    w.MessageCount,
		})
	}
	return events
}

func decodeHex(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil
	}
	return b
}
