package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/internal/metrics"
)

// worker drives a single (origin, stage) pair: it calls Handle in a loop,
// sleeping for pollInterval whenever a call makes no progress, and
// observing cancellation between items and on wake from sleep — never
// mid-RPC.
type worker struct {
	origin       string
	stageName    string
	stage        Stage
	stageCtx     *StageContext
	pollInterval time.Duration
	logger       *zap.Logger

	readyOnce bool
	setReady  func()

	mu             sync.RWMutex
	lastProgressAt time.Time
	lastErr        error
}

func newWorker(origin, stageName string, stage Stage, sc *StageContext, pollInterval time.Duration, logger *zap.Logger, setReady func()) *worker {
	return &worker{
		origin:       origin,
		stageName:    stageName,
		stage:        stage,
		stageCtx:     sc,
		pollInterval: pollInterval,
		logger:       logger.With(zap.String("origin", origin), zap.String("stage", stageName)),
		setReady:     setReady,
	}
}

// status snapshots this worker's last-progress timestamp and most recent
// error for the /health endpoint.
func (w *worker) status() WorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := WorkerStatus{
		Origin:         w.origin,
		Stage:          w.stageName,
		Ready:          w.readyOnce,
		LastProgressAt: w.lastProgressAt,
	}
	if w.lastErr != nil {
		st.LastError = w.lastErr.Error()
	}
	return st
}

func (w *worker) run(ctx context.Context) {
	w.logger.Info("worker started")
	defer w.logger.Info("worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		progressed, err := w.handleOnce(ctx)
		if err != nil {
			w.logger.Error("stage iteration failed", zap.Error(err))
		}

		w.mu.Lock()
		w.lastErr = err
		if progressed {
			w.lastProgressAt = time.Now()
		}
		w.mu.Unlock()

		if progressed {
			// Drain remaining work before sleeping; a consecutive
			// no-progress call marks this worker caught up.
			continue
		}

		if !w.readyOnce {
			w.mu.Lock()
			w.readyOnce = true
			w.mu.Unlock()
			if w.setReady != nil {
				w.setReady()
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *worker) handleOnce(ctx context.Context) (bool, error) {
	start := time.Now()
	progressed, err := w.stage.Handle(ctx, w.stageCtx)
	metrics.StageDuration.WithLabelValues(w.origin, w.stageName).Observe(time.Since(start).Seconds())

	label := "false"
	if progressed {
		label = "true"
	}
	metrics.StageProgressTotal.WithLabelValues(w.origin, w.stageName, label).Inc()

	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(w.stageName, "handle").Inc()
	}
	return progressed, err
}
