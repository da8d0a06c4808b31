package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// messageKind is the fixed discriminant (kind=2) the vault controller wire
// format embeds in every message hash.
const messageKind uint8 = 2

var messageHashArgs = abi.Arguments{
	{Type: mustType("uint256")},
	{Type: mustType("uint8")},
	{Type: mustType("address")},
	{Type: mustType("address")},
	{Type: mustType("uint256")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// MessageHash computes keccak256(abi.encode(vaultNonce, kind=2, l1Vault,
// receiver, shares)), the per-message hash the vault controller's
// updateWithdrawalState call aggregates.
func MessageHash(vaultNonce *big.Int, l1Vault, receiver common.Address, shares *big.Int) ([32]byte, error) {
	packed, err := messageHashArgs.Pack(vaultNonce, messageKind, l1Vault, receiver, shares)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}
