// Package relayer implements app.Runner for the bridge relayer process: it
// wires the Transaction Store, Event Source, Signed-Sender, and Stage
// Handlers into a Worker Runtime, and serves /livez, /readyz, /health and
// /metrics alongside it.
package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/app/httpserver"
	"github.com/via-network/bridge-relayer/pkg/config"
	"github.com/via-network/bridge-relayer/pkg/indexer"
	"github.com/via-network/bridge-relayer/pkg/indexer/httpsource"
	"github.com/via-network/bridge-relayer/pkg/indexer/sqlsource"
	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/relay/stages"
	"github.com/via-network/bridge-relayer/pkg/signer"
	"github.com/via-network/bridge-relayer/pkg/store"
	"github.com/via-network/bridge-relayer/pkg/store/pgstore"
)

const (
	defaultGracefulShutdownTimeout = 30 * time.Second
	defaultHTTPMiddlewareTimeout   = 60 * time.Second
	defaultHTTPReadTimeout         = 15 * time.Second
	defaultHTTPWriteTimeout        = 15 * time.Second
	defaultHTTPIdleTimeout         = 60 * time.Second
)

// Server holds configuration for the relayer process.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new relayer Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires the Supervisor (C6): config, store, indexer, sender(s), the
// seven stage workers, then the operational HTTP server. It blocks until an
// OS shutdown signal is received or a fatal component fails to start, and
// shuts every component down in reverse wiring order before returning.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting via bridge relayer")

	txStore, err := pgstore.New(cfg.Store.DSN, cfg.Store.MaxOpenConns, cfg.Store.MaxIdleConns)
	if err != nil {
		return fmt.Errorf("connect transaction store: %w", err)
	}
	defer func() { _ = txStore.Close() }()
	logger.Info("transaction store connected")

	source, err := openIndexer(ctx, cfg.Indexer, logger)
	if err != nil {
		return fmt.Errorf("open event source: %w", err)
	}
	defer func() { _ = source.Close() }()
	logger.Info("event source opened", zap.String("backend", cfg.Indexer.Backend))

	sender, err := newSender(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize signed-sender: %w", err)
	}
	defer sender.Close()
	logger.Info("signed-sender ready")

	runtime := buildRuntime(cfg, txStore, source, sender, logger)
	if err := runtime.Start(ctx); err != nil {
		return fmt.Errorf("start worker runtime: %w", err)
	}
	defer runtime.Stop()

	router := s.newRouter(runtime, logger)
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := newHTTPServer(serverAddr, router)

	return httpserver.ServeAndWait(ctx, logger, httpServer, defaultGracefulShutdownTimeout)
}

func openIndexer(ctx context.Context, cfg config.IndexerConfig, logger *zap.Logger) (indexer.Source, error) {
	switch cfg.Backend {
	case "http":
		return httpsource.Open(ctx, httpsource.Config{
			Addr:          cfg.Addr,
			APIKey:        cfg.APIKey,
			TLSEnabled:    cfg.TLSEnabled,
			Timeout:       cfg.RequestTimeout,
			RetryAttempts: cfg.RetryAttempts,
		}, logger)
	default:
		return sqlsource.Open(ctx, cfg.DSN)
	}
}

func newSender(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*signer.EVMSender, error) {
	chains := map[signer.Chain]signer.ChainConfig{
		signer.ChainEthereum: {
			RPCURL:        cfg.Ethereum.URL,
			FallbackURLs:  cfg.Ethereum.FallbackURLs,
			PrivateKeyHex: cfg.Ethereum.RelayerPrivateKey,
			ChainID:       cfg.Ethereum.ChainID,
			MaxGasPrice:   parseBigInt(cfg.Ethereum.MaxGasPrice),
		},
		signer.ChainVia: {
			RPCURL:        cfg.Via.URL,
			FallbackURLs:  cfg.Via.FallbackURLs,
			PrivateKeyHex: cfg.Via.RelayerPrivateKey,
			ChainID:       cfg.Via.ChainID,
			MaxGasPrice:   parseBigInt(cfg.Via.MaxGasPrice),
			FixedGas: &signer.GasHints{
				GasLimit:      cfg.Via.L2GasLimit,
				GasPrice:      parseBigInt(cfg.Via.L2GasPrice),
				GasPerPubdata: parseBigInt(cfg.Via.L2GasPerPubdata),
			},
		},
	}
	return signer.NewEVMSender(ctx, chains, logger)
}

func parseBigInt(s string) *big.Int {
	if s == "" {
		return nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return n
}

// buildRuntime assembles a StageContext per origin and registers every
// worker named in the spec's operation table. L1BatchNumber,
// VaultControllerUpdate, WithdrawalStateUpdated and L1BatchFinalized only
// ever run against Via-origin messages.
func buildRuntime(cfg *config.Config, st store.Store, src indexer.Source, snd signer.Sender, logger *zap.Logger) *relay.Runtime {
	ethCtx := &relay.StageContext{
		Store:                  st,
		Indexer:                src,
		Sender:                 snd,
		Logger:                 logger,
		Origin:                 store.OriginEthereum,
		BatchSize:              cfg.Relay.TransactionBatchSize,
		WaitBlockConfirmations: cfg.Ethereum.WaitBlockConfirmations,
		PendingTxTimeout:       cfg.Relay.PendingTxTimeout,
		EthereumBridgeAddress:  cfg.Ethereum.BridgeAddress,
		ViaBridgeAddress:       cfg.Via.BridgeAddress,
		ViaVaultAddress:        cfg.Via.VaultAddress,
	}
	viaCtx := &relay.StageContext{
		Store:                                ethCtx.Store,
		Indexer:                              ethCtx.Indexer,
		Sender:                               ethCtx.Sender,
		Logger:                                logger,
		Origin:                               store.OriginVia,
		BatchSize:                            cfg.Relay.TransactionBatchSize,
		WaitBlockConfirmations:               cfg.Via.WaitBlockConfirmations,
		WithdrawalFinalizationConfirmations:  cfg.Relay.WithdrawalFinalizationConfirmations,
		PendingTxTimeout:                     cfg.Relay.PendingTxTimeout,
		EthereumBridgeAddress:                cfg.Ethereum.BridgeAddress,
		ViaBridgeAddress:                     cfg.Via.BridgeAddress,
		ViaVaultAddress:                      cfg.Via.VaultAddress,
	}

	specs := []relay.WorkerSpec{
		{Origin: store.OriginEthereum, Stage: stages.BridgeInitiated{}},
		{Origin: store.OriginEthereum, Stage: stages.BridgeFinalize{}},
		{Origin: store.OriginEthereum, Stage: stages.StalePendingReconciler{}},
		{Origin: store.OriginVia, Stage: stages.BridgeInitiated{}},
		{Origin: store.OriginVia, Stage: stages.BridgeFinalize{}},
		{Origin: store.OriginVia, Stage: stages.L1BatchNumber{}},
		{Origin: store.OriginVia, Stage: stages.VaultControllerUpdate{}},
		{Origin: store.OriginVia, Stage: stages.WithdrawalStateUpdated{}},
		{Origin: store.OriginVia, Stage: stages.L1BatchFinalized{}},
		{Origin: store.OriginVia, Stage: stages.StalePendingReconciler{}},
	}

	stageCtxs := map[store.Origin]*relay.StageContext{
		store.OriginEthereum: ethCtx,
		store.OriginVia:      viaCtx,
	}

	return relay.NewRuntime(specs, stageCtxs, cfg.Relay.WorkerPollingInterval, logger)
}

// healthSnapshot is the JSON body /health reports: overall readiness plus
// each worker's last-progress timestamp, generalized from the teacher's
// static handleGetStatus into a real per-worker snapshot.
type healthSnapshot struct {
	Status  string              `json:"status"`
	Ready   bool                `json:"ready"`
	Workers []relay.WorkerStatus `json:"workers"`
}

func (s *Server) newRouter(runtime *relay.Runtime, logger *zap.Logger) http.Handler {
	cfg := s.cfg

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))
	r.Use(middleware.Logger)

	// /livez only reflects that the process is up and serving; it never
	// depends on Runtime state.
	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !runtime.IsReady() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		snapshot := healthSnapshot{
			Status:  "running",
			Ready:   runtime.IsReady(),
			Workers: runtime.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		if !snapshot.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snapshot)
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics enabled", zap.String("path", "/metrics"))
	}

	return r
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  defaultHTTPReadTimeout,
		WriteTimeout: defaultHTTPWriteTimeout,
		IdleTimeout:  defaultHTTPIdleTimeout,
	}
}
