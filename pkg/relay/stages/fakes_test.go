package stages

import (
	"context"
	"math/big"
	"time"

	"github.com/via-network/bridge-relayer/pkg/indexer"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// fakeStore is an in-memory store.Store double driven by function fields;
// tests set only the hooks a stage actually exercises.
type fakeStore struct {
	messages map[int64]*store.BridgeMessage
	batches  map[int64]*store.VaultControllerBatch
	cursors  map[string]uint64
	nextID   int64

	upsertMessageFn       func(ctx context.Context, f store.NewMessageFields) (*store.BridgeMessage, error)
	findBySourceHashFn    func(ctx context.Context, hash string) (*store.BridgeMessage, error)
	findByDestHashFn      func(ctx context.Context, hash string) (*store.BridgeMessage, error)
	messagesByStatusFn    func(ctx context.Context, status store.MessageStatus, origin store.Origin, limit int, maxBlock *uint64) ([]*store.BridgeMessage, error)
	cursorFn              func(ctx context.Context, streamName string) (uint64, error)
	advanceCursorFn       func(ctx context.Context, streamName string, ordinal uint64) error
	missingBatchNumberFn  func(ctx context.Context, origin store.Origin, limit int) ([]*store.BridgeMessage, error)
	withBatchNumberFn     func(ctx context.Context, origin store.Origin, limit int) ([]*store.BridgeMessage, error)
	setDestTxAndStatusFn  func(ctx context.Context, id int64, destTxHash string, destBlock uint64, status store.MessageStatus) error
	setL1BatchNumberFn    func(ctx context.Context, id int64, l1BatchNumber uint64) error
	linkAndUpdateStatusFn func(ctx context.Context, ids []int64, batchID int64, newStatus store.MessageStatus) error
	stalePendingFn        func(ctx context.Context, origin store.Origin, olderThan time.Duration, limit int) ([]*store.BridgeMessage, error)
	setMessageStatusFn    func(ctx context.Context, id int64, status store.MessageStatus) error
	createVaultBatchFn    func(ctx context.Context, batch *store.VaultControllerBatch) (*store.VaultControllerBatch, error)
	pendingVaultBatchesFn func(ctx context.Context, limit int) ([]*store.VaultControllerBatch, error)
	staleVaultBatchesFn   func(ctx context.Context, olderThan time.Duration, limit int) ([]*store.VaultControllerBatch, error)
	setVaultBatchStatusFn func(ctx context.Context, id int64, status store.BatchStatus) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: map[int64]*store.BridgeMessage{},
		batches:  map[int64]*store.VaultControllerBatch{},
		cursors:  map[string]uint64{},
	}
}

func (s *fakeStore) UpsertMessage(ctx context.Context, f store.NewMessageFields) (*store.BridgeMessage, error) {
	if s.upsertMessageFn != nil {
		return s.upsertMessageFn(ctx, f)
	}
	s.nextID++
	msg := &store.BridgeMessage{
		ID:           s.nextID,
		Origin:       f.Origin,
		Status:       f.Status,
		SourceTxHash: f.SourceTxHash,
		DestTxHash:   f.DestTxHash,
		OriginBlock:  f.OriginBlock,
		Payload:      f.Payload,
		EventType:    f.EventType,
		SubgraphID:   f.SubgraphID,
	}
	s.messages[msg.ID] = msg
	return msg, nil
}

func (s *fakeStore) FindBySourceHash(ctx context.Context, hash string) (*store.BridgeMessage, error) {
	if s.findBySourceHashFn != nil {
		return s.findBySourceHashFn(ctx, hash)
	}
	for _, m := range s.messages {
		if m.SourceTxHash == hash {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByDestHash(ctx context.Context, hash string) (*store.BridgeMessage, error) {
	if s.findByDestHashFn != nil {
		return s.findByDestHashFn(ctx, hash)
	}
	for _, m := range s.messages {
		if m.DestTxHash == hash {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindBySubgraphID(ctx context.Context, subgraphID string) (*store.BridgeMessage, error) {
	return nil, nil
}

func (s *fakeStore) MessagesByStatus(ctx context.Context, status store.MessageStatus, origin store.Origin, limit int, maxBlock *uint64) ([]*store.BridgeMessage, error) {
	if s.messagesByStatusFn != nil {
		return s.messagesByStatusFn(ctx, status, origin, limit, maxBlock)
	}
	var out []*store.BridgeMessage
	for _, m := range s.messages {
		if m.Status == status && m.Origin == origin {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) MessagesMissingBatchNumber(ctx context.Context, origin store.Origin, limit int) ([]*store.BridgeMessage, error) {
	if s.missingBatchNumberFn != nil {
		return s.missingBatchNumberFn(ctx, origin, limit)
	}
	return nil, nil
}

func (s *fakeStore) MessagesWithBatchNumber(ctx context.Context, origin store.Origin, limit int) ([]*store.BridgeMessage, error) {
	if s.withBatchNumberFn != nil {
		return s.withBatchNumberFn(ctx, origin, limit)
	}
	return nil, nil
}

func (s *fakeStore) SetDestTxAndStatus(ctx context.Context, id int64, destTxHash string, destBlock uint64, status store.MessageStatus) error {
	if s.setDestTxAndStatusFn != nil {
		return s.setDestTxAndStatusFn(ctx, id, destTxHash, destBlock, status)
	}
	if m, ok := s.messages[id]; ok {
		m.DestTxHash = destTxHash
		m.DestBlock = &destBlock
		m.Status = status
	}
	return nil
}

func (s *fakeStore) SetL1BatchNumber(ctx context.Context, id int64, l1BatchNumber uint64) error {
	if s.setL1BatchNumberFn != nil {
		return s.setL1BatchNumberFn(ctx, id, l1BatchNumber)
	}
	if m, ok := s.messages[id]; ok {
		m.L1BatchNumber = &l1BatchNumber
	}
	return nil
}

func (s *fakeStore) UpdateStatusBatch(ctx context.Context, ids []int64, newStatus store.MessageStatus) error {
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			m.Status = newStatus
		}
	}
	return nil
}

func (s *fakeStore) LinkToBatch(ctx context.Context, ids []int64, batchID int64) error {
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			m.VaultCtrlRef = &batchID
		}
	}
	return nil
}

func (s *fakeStore) LinkAndUpdateStatus(ctx context.Context, ids []int64, batchID int64, newStatus store.MessageStatus) error {
	if s.linkAndUpdateStatusFn != nil {
		return s.linkAndUpdateStatusFn(ctx, ids, batchID, newStatus)
	}
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			m.VaultCtrlRef = &batchID
			m.Status = newStatus
		}
	}
	return nil
}

func (s *fakeStore) StalePending(ctx context.Context, origin store.Origin, olderThan time.Duration, limit int) ([]*store.BridgeMessage, error) {
	if s.stalePendingFn != nil {
		return s.stalePendingFn(ctx, origin, olderThan, limit)
	}
	return nil, nil
}

func (s *fakeStore) SetMessageStatus(ctx context.Context, id int64, status store.MessageStatus) error {
	if s.setMessageStatusFn != nil {
		return s.setMessageStatusFn(ctx, id, status)
	}
	if m, ok := s.messages[id]; ok {
		m.Status = status
	}
	return nil
}

func (s *fakeStore) CreateVaultControllerBatch(ctx context.Context, batch *store.VaultControllerBatch) (*store.VaultControllerBatch, error) {
	if s.createVaultBatchFn != nil {
		return s.createVaultBatchFn(ctx, batch)
	}
	s.nextID++
	batch.ID = s.nextID
	s.batches[batch.ID] = batch
	return batch, nil
}

func (s *fakeStore) PendingVaultBatches(ctx context.Context, limit int) ([]*store.VaultControllerBatch, error) {
	if s.pendingVaultBatchesFn != nil {
		return s.pendingVaultBatchesFn(ctx, limit)
	}
	return nil, nil
}

func (s *fakeStore) StaleVaultBatches(ctx context.Context, olderThan time.Duration, limit int) ([]*store.VaultControllerBatch, error) {
	if s.staleVaultBatchesFn != nil {
		return s.staleVaultBatchesFn(ctx, olderThan, limit)
	}
	return nil, nil
}

func (s *fakeStore) SetVaultBatchStatus(ctx context.Context, id int64, status store.BatchStatus) error {
	if s.setVaultBatchStatusFn != nil {
		return s.setVaultBatchStatusFn(ctx, id, status)
	}
	if b, ok := s.batches[id]; ok {
		b.Status = status
	}
	return nil
}

func (s *fakeStore) Cursor(ctx context.Context, streamName string) (uint64, error) {
	if s.cursorFn != nil {
		return s.cursorFn(ctx, streamName)
	}
	return s.cursors[streamName], nil
}

func (s *fakeStore) AdvanceCursor(ctx context.Context, streamName string, ordinal uint64) error {
	if s.advanceCursorFn != nil {
		return s.advanceCursorFn(ctx, streamName, ordinal)
	}
	if ordinal > s.cursors[streamName] {
		s.cursors[streamName] = ordinal
	}
	return nil
}

func (s *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

// fakeIndexer is an in-memory indexer.Source double.
type fakeIndexer struct {
	eventsSinceBlockFn     func(ctx context.Context, stream indexer.Stream, origin string, from, to uint64, limit int) ([]indexer.Event, error)
	eventsByTxHashesFn     func(ctx context.Context, stream indexer.Stream, origin string, hashes []string) ([]indexer.Event, error)
	withdrawalStateEventsFn func(ctx context.Context, batchNumbers []uint64, maxBlock uint64, limit int) ([]indexer.Event, error)
}

func (f *fakeIndexer) EventsSinceBlock(ctx context.Context, stream indexer.Stream, origin string, from, to uint64, limit int) ([]indexer.Event, error) {
	if f.eventsSinceBlockFn != nil {
		return f.eventsSinceBlockFn(ctx, stream, origin, from, to, limit)
	}
	return nil, nil
}

func (f *fakeIndexer) EventsByTxHashes(ctx context.Context, stream indexer.Stream, origin string, hashes []string) ([]indexer.Event, error) {
	if f.eventsByTxHashesFn != nil {
		return f.eventsByTxHashesFn(ctx, stream, origin, hashes)
	}
	return nil, nil
}

func (f *fakeIndexer) WithdrawalStateEvents(ctx context.Context, batchNumbers []uint64, maxBlock uint64, limit int) ([]indexer.Event, error) {
	if f.withdrawalStateEventsFn != nil {
		return f.withdrawalStateEventsFn(ctx, batchNumbers, maxBlock, limit)
	}
	return nil, nil
}

func (f *fakeIndexer) Close() error { return nil }

var _ indexer.Source = (*fakeIndexer)(nil)

// fakeSender is an in-memory signer.Sender double.
type fakeSender struct {
	blockNumbers map[signer.Chain]uint64
	receipts     map[string]*signer.Receipt

	sendRawFn          func(ctx context.Context, chain signer.Chain, to string, data []byte, value *big.Int, gas signer.GasHints) (string, error)
	sendContractCallFn func(ctx context.Context, chain signer.Chain, contract, method string, args ...any) (string, error)
	rawRPCFn           func(ctx context.Context, chain signer.Chain, method string, params ...any) ([]byte, error)

	sentTxHash int
}

func newFakeSender() *fakeSender {
	return &fakeSender{blockNumbers: map[signer.Chain]uint64{}, receipts: map[string]*signer.Receipt{}}
}

func (f *fakeSender) SendRaw(ctx context.Context, chain signer.Chain, to string, data []byte, value *big.Int, gas signer.GasHints) (string, error) {
	if f.sendRawFn != nil {
		return f.sendRawFn(ctx, chain, to, data, value, gas)
	}
	return f.nextTxHash(), nil
}

func (f *fakeSender) SendContractCall(ctx context.Context, chain signer.Chain, contract string, method string, args ...any) (string, error) {
	if f.sendContractCallFn != nil {
		return f.sendContractCallFn(ctx, chain, contract, method, args...)
	}
	return f.nextTxHash(), nil
}

func (f *fakeSender) Receipt(ctx context.Context, chain signer.Chain, txHash string) (*signer.Receipt, error) {
	return f.receipts[txHash], nil
}

func (f *fakeSender) BlockNumber(ctx context.Context, chain signer.Chain) (uint64, error) {
	return f.blockNumbers[chain], nil
}

func (f *fakeSender) RawRPC(ctx context.Context, chain signer.Chain, method string, params ...any) ([]byte, error) {
	if f.rawRPCFn != nil {
		return f.rawRPCFn(ctx, chain, method, params...)
	}
	return []byte("null"), nil
}

func (f *fakeSender) nextTxHash() string {
	f.sentTxHash++
	return "0xtx" + string(rune('a'+f.sentTxHash))
}

var _ signer.Sender = (*fakeSender)(nil)
