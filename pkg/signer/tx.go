package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// gethTx aliases the concrete transaction type so the rest of the package
// doesn't need to import core/types directly.
type gethTx = types.Transaction

func newDynamicFeeTx(chainID *big.Int, nonce uint64, to *common.Address, value *big.Int, gasLimit uint64, gasFeeCap, gasTipCap *big.Int, data []byte) *gethTx {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        to,
		Value:     value,
		Data:      data,
	})
}

func newLegacyTx(nonce uint64, to *common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *gethTx {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
}

func signTx(tx *gethTx, chainID *big.Int, privateKey *ecdsa.PrivateKey) (*gethTx, error) {
	signer := types.LatestSignerForChainID(chainID)
	return types.SignTx(tx, signer, privateKey)
}
