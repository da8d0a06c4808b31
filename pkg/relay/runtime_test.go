package relay

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/store"
)

// countingStage progresses exactly progressFor calls, then reports no
// further progress.
type countingStage struct {
	name        string
	progressFor int32
	calls       int32
}

func (s *countingStage) Name() string { return s.name }

func (s *countingStage) Handle(ctx context.Context, sc *StageContext) (bool, error) {
	n := atomic.AddInt32(&s.calls, 1)
	return n <= s.progressFor, nil
}

func TestRuntime_BecomesReadyAfterCatchUp(t *testing.T) {
	stage := &countingStage{name: "test_stage", progressFor: 2}
	sc := &StageContext{}

	rt := NewRuntime(
		[]WorkerSpec{{Origin: store.OriginEthereum, Stage: stage}},
		map[store.Origin]*StageContext{store.OriginEthereum: sc},
		time.Millisecond,
		zap.NewNop(),
	)

	require.NoError(t, rt.Start(context.Background()))
	defer rt.Stop()

	require.Eventually(t, rt.IsReady, time.Second, time.Millisecond)
}

func TestRuntime_UnconfiguredOriginFailsStart(t *testing.T) {
	stage := &countingStage{name: "test_stage"}

	rt := NewRuntime(
		[]WorkerSpec{{Origin: store.OriginVia, Stage: stage}},
		map[store.Origin]*StageContext{store.OriginEthereum: {}},
		time.Millisecond,
		zap.NewNop(),
	)

	err := rt.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "via")
}

func TestRuntime_StopCancelsWorkers(t *testing.T) {
	stage := &countingStage{name: "test_stage"}
	sc := &StageContext{}

	rt := NewRuntime(
		[]WorkerSpec{{Origin: store.OriginEthereum, Stage: stage}},
		map[store.Origin]*StageContext{store.OriginEthereum: sc},
		10 * time.Millisecond,
		zap.NewNop(),
	)

	require.NoError(t, rt.Start(context.Background()))
	rt.Stop()

	callsAtStop := atomic.LoadInt32(&stage.calls)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, callsAtStop, atomic.LoadInt32(&stage.calls))
}
