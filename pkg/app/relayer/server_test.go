package relayer

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/via-network/bridge-relayer/pkg/config"
	"github.com/via-network/bridge-relayer/pkg/relay"
	"github.com/via-network/bridge-relayer/pkg/store"
)

type noProgressStage struct{}

func (noProgressStage) Name() string { return "noop" }
func (noProgressStage) Handle(ctx context.Context, sc *relay.StageContext) (bool, error) {
	return false, nil
}

func newTestRuntime(t *testing.T) *relay.Runtime {
	t.Helper()
	rt := relay.NewRuntime(
		[]relay.WorkerSpec{{Origin: store.OriginEthereum, Stage: noProgressStage{}}},
		map[store.Origin]*relay.StageContext{store.OriginEthereum: {}},
		time.Millisecond,
		zap.NewNop(),
	)
	require.NoError(t, rt.Start(context.Background()))
	t.Cleanup(rt.Stop)
	return rt
}

func TestNewRouter_LivezAlwaysOK(t *testing.T) {
	s := &Server{cfg: &config.Config{Monitoring: config.MonitoringConfig{Enabled: false}}}
	router := s.newRouter(newTestRuntime(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_ReadyzReflectsRuntimeReadiness(t *testing.T) {
	s := &Server{cfg: &config.Config{Monitoring: config.MonitoringConfig{Enabled: false}}}
	router := s.newRouter(newTestRuntime(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.True(t, rec.Code == http.StatusOK || rec.Code == http.StatusServiceUnavailable)
}

func TestNewRouter_HealthReportsJSONSnapshot(t *testing.T) {
	s := &Server{cfg: &config.Config{Monitoring: config.MonitoringConfig{Enabled: false}}}
	router := s.newRouter(newTestRuntime(t), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snapshot healthSnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snapshot))
	require.Equal(t, "running", snapshot.Status)
	require.Len(t, snapshot.Workers, 1)
	require.Equal(t, "ethereum", snapshot.Workers[0].Origin)
	require.Equal(t, "noop", snapshot.Workers[0].Stage)
}

func TestNewRouter_MetricsOnlyMountedWhenEnabled(t *testing.T) {
	disabled := &Server{cfg: &config.Config{Monitoring: config.MonitoringConfig{Enabled: false}}}
	router := disabled.newRouter(newTestRuntime(t), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	enabled := &Server{cfg: &config.Config{Monitoring: config.MonitoringConfig{Enabled: true}}}
	router = enabled.newRouter(newTestRuntime(t), zap.NewNop())
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestParseBigInt(t *testing.T) {
	require.Nil(t, parseBigInt(""))
	require.Nil(t, parseBigInt("not-a-number"))
	require.Equal(t, big.NewInt(42), parseBigInt("42"))
}

func TestRun_NilConfigErrors(t *testing.T) {
	s := NewServer(nil)
	err := s.Run()
	require.Error(t, err)
}
