package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestMessageHash_Deterministic(t *testing.T) {
	vault := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	shares := big.NewInt(1_000_000)

	h1, err := MessageHash(big.NewInt(42), vault, receiver, shares)
	require.NoError(t, err)

	h2, err := MessageHash(big.NewInt(42), vault, receiver, shares)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
}

func TestMessageHash_DiffersByNonce(t *testing.T) {
	vault := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")
	shares := big.NewInt(1_000_000)

	h1, err := MessageHash(big.NewInt(1), vault, receiver, shares)
	require.NoError(t, err)

	h2, err := MessageHash(big.NewInt(2), vault, receiver, shares)
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}

func TestMessageHash_DiffersByShares(t *testing.T) {
	vault := common.HexToAddress("0x1111111111111111111111111111111111111111")
	receiver := common.HexToAddress("0x2222222222222222222222222222222222222222")

	h1, err := MessageHash(big.NewInt(1), vault, receiver, big.NewInt(100))
	require.NoError(t, err)

	h2, err := MessageHash(big.NewInt(1), vault, receiver, big.NewInt(200))
	require.NoError(t, err)

	require.NotEqual(t, h1, h2)
}
