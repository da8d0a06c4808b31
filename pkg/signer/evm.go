package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minTipWei and tipFallbackWei mirror the teacher's hard-coded 2 gwei
// minimum priority fee used when the node's suggestion is missing or too low.
var (
	minTipWei      = big.NewInt(2_000_000_000)
	tipFallbackWei = big.NewInt(2_000_000_000)
)

// ChainConfig is the per-chain wiring the EVMSender needs.
type ChainConfig struct {
	RPCURL        string
	FallbackURLs  []string
	PrivateKeyHex string
	ChainID       int64
	MaxGasPrice   *big.Int
	// FixedGas is used verbatim for this chain instead of EIP-1559
	// estimation (set for Via).
	FixedGas *GasHints
}

type chainHandle struct {
	cfg        ChainConfig
	client     *ethclient.Client
	rpcClient  *rpc.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int

	// mu serializes nonce acquisition + broadcast for this chain: it is
	// held from the nonce read through the signed send, and released
	// before the caller waits on inclusion.
	mu sync.Mutex
}

// EVMSender is the concrete Sender (C3) for EVM-compatible chains (both
// Ethereum L1 and Via's L2, since Via exposes an EVM-compatible RPC).
type EVMSender struct {
	logger *zap.Logger
	chains map[Chain]*chainHandle

	receiveMessageABI abi.ABI
	updateWithdrawABI abi.ABI
}

const receiveMessageABIJSON = `[{"type":"function","name":"receiveMessage","inputs":[{"name":"payload","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"}]`

const updateWithdrawalStateABIJSON = `[{"type":"function","name":"updateWithdrawalState","inputs":[{"name":"messageHashes","type":"bytes32[]"},{"name":"l1BatchNumber","type":"uint256"},{"name":"totalShares","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}]`

// NewEVMSender dials every configured chain and loads its signing key.
func NewEVMSender(ctx context.Context, cfgs map[Chain]ChainConfig, logger *zap.Logger) (*EVMSender, error) {
	recvABI, err := abi.JSON(strings.NewReader(receiveMessageABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse receiveMessage abi: %w", err)
	}
	updateABI, err := abi.JSON(strings.NewReader(updateWithdrawalStateABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse updateWithdrawalState abi: %w", err)
	}

	s := &EVMSender{
		logger:            logger,
		chains:            make(map[Chain]*chainHandle, len(cfgs)),
		receiveMessageABI: recvABI,
		updateWithdrawABI: updateABI,
	}

	for chain, cfg := range cfgs {
		handle, err := dialChain(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("dial %s: %w", chain, err)
		}
		s.chains[chain] = handle
	}

	return s, nil
}

func dialChain(ctx context.Context, cfg ChainConfig) (*chainHandle, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	client := ethclient.NewClient(rpcClient)

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &chainHandle{
		cfg:        cfg,
		client:     client,
		rpcClient:  rpcClient,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    big.NewInt(cfg.ChainID),
	}, nil
}

// Close closes every dialed chain client.
func (s *EVMSender) Close() {
	for _, h := range s.chains {
		if h.client != nil {
			h.client.Close()
		}
	}
}

func (s *EVMSender) handle(chain Chain) (*chainHandle, error) {
	h, ok := s.chains[chain]
	if !ok {
		return nil, fmt.Errorf("unconfigured chain: %s", chain)
	}
	return h, nil
}

// buildAndSend acquires h.mu, builds an EIP-1559 (or fixed-gas) transaction
// carrying data, signs it, and broadcasts it — all while holding the lock —
// then releases the lock before returning. Inclusion is not awaited here.
// buildAndSend builds, signs and broadcasts a transaction. submissionID
// correlates the log lines of one submission attempt before a tx hash
// exists to sign (nonce/gas lookups can fail ahead of that point).
func (s *EVMSender) buildAndSend(ctx context.Context, h *chainHandle, to common.Address, data []byte, value *big.Int, gas GasHints) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	submissionID := uuid.NewString()
	log := s.logger.With(zap.String("submission_id", submissionID))

	nonce, err := h.client.PendingNonceAt(ctx, h.address)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}

	if value == nil {
		value = big.NewInt(0)
	}

	var tx *gethTx
	if h.cfg.FixedGas != nil {
		tx, err = s.buildFixedGasTx(h, nonce, to, data, value, h.cfg.FixedGas)
	} else {
		tx, err = s.buildEIP1559Tx(ctx, h, nonce, to, data, value, gas)
	}
	if err != nil {
		return "", err
	}

	signed, err := signTx(tx, h.chainID, h.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}

	if err := h.client.SendTransaction(ctx, signed); err != nil {
		log.Warn("broadcast failed", zap.Error(err))
		return "", fmt.Errorf("broadcast tx: %w", err)
	}

	log.Debug("tx submitted", zap.String("tx_hash", signed.Hash().Hex()), zap.Uint64("nonce", nonce))
	return signed.Hash().Hex(), nil
}

func (s *EVMSender) buildEIP1559Tx(ctx context.Context, h *chainHandle, nonce uint64, to common.Address, data []byte, value *big.Int, gas GasHints) (*gethTx, error) {
	header, err := h.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get block header: %w", err)
	}

	tip, err := h.client.SuggestGasTipCap(ctx)
	if err != nil {
		tip = new(big.Int).Set(tipFallbackWei)
		s.logger.Warn("failed to get suggested tip, using fallback", zap.Error(err))
	}
	if tip.Cmp(minTipWei) < 0 {
		tip = new(big.Int).Set(minTipWei)
	}

	maxFee := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)
	if h.cfg.MaxGasPrice != nil && maxFee.Cmp(h.cfg.MaxGasPrice) > 0 {
		s.logger.Warn("calculated maxFee exceeds limit, capping",
			zap.String("calculated", maxFee.String()),
			zap.String("max_allowed", h.cfg.MaxGasPrice.String()))
		maxFee = h.cfg.MaxGasPrice
	}

	gasLimit := gas.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}

	return newDynamicFeeTx(h.chainID, nonce, &to, value, gasLimit, maxFee, tip, data), nil
}

func (s *EVMSender) buildFixedGasTx(h *chainHandle, nonce uint64, to common.Address, data []byte, value *big.Int, fixed *GasHints) (*gethTx, error) {
	gasLimit := fixed.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}
	gasPrice := fixed.GasPrice
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	return newLegacyTx(nonce, &to, value, gasLimit, gasPrice, data), nil
}

const defaultGasLimit = 500_000

// SendRaw implements Sender.
func (s *EVMSender) SendRaw(ctx context.Context, chain Chain, to string, data []byte, value *big.Int, gas GasHints) (string, error) {
	h, err := s.handle(chain)
	if err != nil {
		return "", err
	}
	return s.buildAndSend(ctx, h, common.HexToAddress(to), data, value, gas)
}

// SendReceiveMessage ABI-encodes and broadcasts receiveMessage(payload) on
// to (the destination bridge contract).
func (s *EVMSender) SendReceiveMessage(ctx context.Context, chain Chain, to string, payload []byte) (string, error) {
	data, err := s.receiveMessageABI.Pack("receiveMessage", payload)
	if err != nil {
		return "", fmt.Errorf("pack receiveMessage: %w", err)
	}
	return s.SendRaw(ctx, chain, to, data, nil, GasHints{})
}

// SendUpdateWithdrawalState ABI-encodes and broadcasts
// updateWithdrawalState(bytes32[], uint256, uint256) on the vault contract.
func (s *EVMSender) SendUpdateWithdrawalState(ctx context.Context, chain Chain, vaultContract string, messageHashes [][32]byte, l1BatchNumber *big.Int, totalShares *big.Int) (string, error) {
	data, err := s.updateWithdrawABI.Pack("updateWithdrawalState", messageHashes, l1BatchNumber, totalShares)
	if err != nil {
		return "", fmt.Errorf("pack updateWithdrawalState: %w", err)
	}
	return s.SendRaw(ctx, chain, vaultContract, data, nil, GasHints{})
}

// SendContractCall implements Sender. It packs method against the
// receiveMessage or updateWithdrawalState ABI and rejects any other method
// name; the relay stages send both calls through it.
func (s *EVMSender) SendContractCall(ctx context.Context, chain Chain, contract string, method string, args ...any) (string, error) {
	var target *abi.ABI
	switch method {
	case "receiveMessage":
		target = &s.receiveMessageABI
	case "updateWithdrawalState":
		target = &s.updateWithdrawABI
	default:
		return "", fmt.Errorf("unknown contract method: %s", method)
	}

	data, err := target.Pack(method, args...)
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", method, err)
	}
	return s.SendRaw(ctx, chain, contract, data, nil, GasHints{})
}

// Receipt implements Sender.
func (s *EVMSender) Receipt(ctx context.Context, chain Chain, txHash string) (*Receipt, error) {
	h, err := s.handle(chain)
	if err != nil {
		return nil, err
	}
	receipt, err := h.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}

	status := ReceiptReverted
	if receipt.Status == 1 {
		status = ReceiptSuccess
	}
	return &Receipt{Status: status, BlockNumber: receipt.BlockNumber.Uint64()}, nil
}

func isNotFound(err error) bool {
	return err != nil && err == ethgo.NotFound
}

// BlockNumber implements Sender.
func (s *EVMSender) BlockNumber(ctx context.Context, chain Chain) (uint64, error) {
	h, err := s.handle(chain)
	if err != nil {
		return 0, err
	}
	header, err := h.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	return header.Number.Uint64(), nil
}

// RawRPC implements Sender, used for Via's zks_getL1BatchDetails.
func (s *EVMSender) RawRPC(ctx context.Context, chain Chain, method string, params ...any) ([]byte, error) {
	h, err := s.handle(chain)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := h.rpcClient.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, fmt.Errorf("rpc call %s: %w", method, err)
	}
	return raw, nil
}

var _ Sender = (*EVMSender)(nil)
