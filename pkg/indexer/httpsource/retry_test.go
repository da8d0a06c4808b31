package httpsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"deadline-exceeded", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"resource-exhausted", status.Error(codes.ResourceExhausted, "throttled"), true},
		{"aborted", status.Error(codes.Aborted, "conflict"), true},
		{"not-found", status.Error(codes.NotFound, "missing"), false},
		{"unauthenticated", status.Error(codes.Unauthenticated, "bad token"), false},
		{"non-status-error", errors.New("dial tcp: connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isTransient(tc.err))
		})
	}
}

func TestCallWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	h := &HTTPSource{logger: zap.NewNop(), timeout: time.Second}

	attempts := 0
	err := h.callWithRetry(context.Background(), "TestRPC", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return status.Error(codes.Unavailable, "retry me")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestCallWithRetry_ReturnsImmediatelyOnNonTransientError(t *testing.T) {
	h := &HTTPSource{logger: zap.NewNop(), timeout: time.Second}

	attempts := 0
	err := h.callWithRetry(context.Background(), "TestRPC", func(ctx context.Context) error {
		attempts++
		return status.Error(codes.Unauthenticated, "bad token")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestCallWithRetry_StopsAtRetryAttemptsCap(t *testing.T) {
	h := &HTTPSource{logger: zap.NewNop(), timeout: time.Second, retryAttempts: 3}

	attempts := 0
	err := h.callWithRetry(context.Background(), "TestRPC", func(ctx context.Context) error {
		attempts++
		return status.Error(codes.Unavailable, "retry me")
	})
	require.Error(t, err)
	require.Equal(t, 3, attempts)
}

func TestCallWithRetry_StopsOnContextCancellation(t *testing.T) {
	h := &HTTPSource{logger: zap.NewNop(), timeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := h.callWithRetry(ctx, "TestRPC", func(ctx context.Context) error {
		attempts++
		cancel()
		return status.Error(codes.Unavailable, "retry me")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}
