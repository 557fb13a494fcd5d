package logx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", "")
	require.Error(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svc.log")
	l, err := New("debug", path)
	require.NoError(t, err)
	l.Info("acquire.stored", zap.String("pair", "USD-INR"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"acquire.stored"`)
	require.Contains(t, string(data), `"pair":"USD-INR"`)
}

func TestWithFields(t *testing.T) {
	require.Same(t, L(), WithFields(context.Background()))

	scoped := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx := ContextWith(context.Background(), scoped)
	require.Same(t, scoped, WithFields(ctx))
}
