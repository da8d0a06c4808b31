package httpsource

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/via-network/bridge-relayer/pkg/indexer"
)

func TestEventsResponse_ToEvents(t *testing.T) {
	resp := &eventsResponse{Events: []wireEvent{
		{
			ID: "evt-1", BlockNumber: 10, TransactionHash: "0xabc", BlockTimestamp: 1000,
			Payload: "0xdeadbeef",
		},
		{
			ID: "evt-2", BlockNumber: 20, TransactionHash: "0xdef",
			VaultNonce: "1", Vault: "0xvault", Receiver: "0xrecv", Shares: "100",
		},
	}}

	events := resp.toEvents(indexer.StreamMessageSent)
	require.Len(t, events, 2)
	require.Equal(t, indexer.StreamMessageSent, events[0].Kind)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, events[0].Payload)
	require.Equal(t, "1", events[1].VaultNonce)
	require.Equal(t, "0xvault", events[1].Vault)
}

func TestDecodeHex(t *testing.T) {
	require.Nil(t, decodeHex(""))
	require.Nil(t, decodeHex("not-hex"))
	require.Equal(t, []byte{0xab, 0xcd}, decodeHex("0xabcd"))
	require.Equal(t, []byte{0xab, 0xcd}, decodeHex("abcd"))
}
