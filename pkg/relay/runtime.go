package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/internal/metrics"
	"github.com/via-network/bridge-relayer/pkg/store"
)

// WorkerSpec names one (origin, stage) task the runtime should drive.
type WorkerSpec struct {
	Origin store.Origin
	Stage  Stage
}

// WorkerStatus is a point-in-time snapshot of one worker, surfaced by the
// /health endpoint.
type WorkerStatus struct {
	Origin         string    `json:"origin"`
	Stage          string    `json:"stage"`
	Ready          bool      `json:"ready"`
	LastProgressAt time.Time `json:"last_progress_at,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
}

// Runtime is the Worker Runtime (C5): it owns one worker goroutine per
// WorkerSpec, sharing a StageContext per origin, and tracks readiness so the
// Supervisor can answer /readyz once every worker has caught up at least
// once.
type Runtime struct {
	logger       *zap.Logger
	pollInterval time.Duration

	specs      []WorkerSpec
	stageCtxs  map[store.Origin]*StageContext

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	workers []*worker

	mu    sync.RWMutex
	ready map[string]bool
}

// NewRuntime builds a Runtime. stageCtxs supplies the per-origin dependency
// bundle each of that origin's stages will share.
func NewRuntime(specs []WorkerSpec, stageCtxs map[store.Origin]*StageContext, pollInterval time.Duration, logger *zap.Logger) *Runtime {
	return &Runtime{
		logger:       logger,
		pollInterval: pollInterval,
		specs:        specs,
		stageCtxs:    stageCtxs,
		ready:        make(map[string]bool, len(specs)),
	}
}

// Start launches one worker per configured spec. It returns once all
// workers have been spawned; it does not wait for them to catch up.
func (r *Runtime) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for _, spec := range r.specs {
		spec := spec
		sc, ok := r.stageCtxs[spec.Origin]
		if !ok {
			cancel()
			return errUnconfiguredOrigin(spec.Origin)
		}

		key := workerKey(string(spec.Origin), spec.Stage.Name())
		w := newWorker(string(spec.Origin), spec.Stage.Name(), spec.Stage, sc, r.pollInterval, r.logger, func() {
			r.markReady(key)
		})
		r.workers = append(r.workers, w)

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			w.run(runCtx)
		}()
	}

	r.logger.Info("worker runtime started", zap.Int("worker_count", len(r.specs)))
	return nil
}

// Stop cancels every worker and blocks until they have all returned.
func (r *Runtime) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("worker runtime stopped")
}

// IsReady reports whether every worker has completed its first no-progress
// iteration (i.e. caught up to its source at least once).
func (r *Runtime) IsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, spec := range r.specs {
		if !r.ready[workerKey(string(spec.Origin), spec.Stage.Name())] {
			return false
		}
	}
	return true
}

// Snapshot returns each worker's current WorkerStatus, for the /health
// endpoint's JSON body.
func (r *Runtime) Snapshot() []WorkerStatus {
	out := make([]WorkerStatus, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w.status())
	}
	return out
}

func (r *Runtime) markReady(key string) {
	r.mu.Lock()
	r.ready[key] = true
	r.mu.Unlock()

	origin, stage := splitWorkerKey(key)
	metrics.WorkerReady.WithLabelValues(origin, stage).Set(1)
}

func workerKey(origin, stage string) string {
	return origin + "/" + stage
}

func splitWorkerKey(key string) (origin, stage string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

type errUnconfiguredOrigin string

func (e errUnconfiguredOrigin) Error() string {
	return "relay: no stage context configured for origin " + string(e)
}
