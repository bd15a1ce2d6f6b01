package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatList(ids ...string) []domain.Element {
	out := make([]domain.Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Element{ID: id})
	}
	return out
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := config.Default()

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memory.Store{}, b.Store)
	assert.Nil(t, b.Locker)
}

func TestOpenBackend_File(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.Path = t.TempDir()

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Store.Save(ctx, &domain.Document{ID: "doc", Elements: flatList("a")}))
	_, err = os.Stat(filepath.Join(cfg.Store.Path, "doc.json"))
	assert.NoError(t, err)
}

func TestOpenBackend_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = mr.Addr()

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Locker)

	ctx := context.Background()
	require.NoError(t, b.Store.Save(ctx, &domain.Document{ID: "doc", Elements: flatList("a")}))
	assert.True(t, mr.Exists(cfg.Store.Redis.Prefix+"doc"))
}

func TestOpenBackend_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = addr

	_, err := OpenBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenBackend_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "tape"

	_, err := OpenBackend(context.Background(), cfg)
	assert.ErrorContains(t, err, "tape")
}

func TestOpenBackend_Encrypted(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendFile
	cfg.Store.Path = t.TempDir()
	cfg.Store.EncryptionKey = strings.Repeat("ab", 32)

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Store.Save(ctx, &domain.Document{ID: "doc", Elements: flatList("secret-node")}))

	raw, err := os.ReadFile(filepath.Join(cfg.Store.Path, "doc.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-node")

	loaded, err := b.Store.Load(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, loaded.Elements, 1)
	assert.Equal(t, "secret-node", loaded.Elements[0].ID)
}

func TestOpenBackend_BadEncryptionKey(t *testing.T) {
	cfg := config.Default()
	cfg.Store.EncryptionKey = "not-hex"

	_, err := OpenBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewWorkspace_RecordsMetrics(t *testing.T) {
	cfg := config.Default()
	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)

	metrics := observability.NewMetrics(nil)
	ws := NewWorkspace(cfg, b, logging.NewNop(), metrics)

	ctx := context.Background()
	_, err = ws.Put(ctx, "doc", flatList("a", "b", "c"))
	require.NoError(t, err)

	move, err := ws.Move(ctx, "doc", "a", domain.Target{ContainerID: domain.RootID, InsertIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, move.NewIndex)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Commits.WithLabelValues("reorder")))
}

func TestNewWorkspace_RedisLocking(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.Addr = mr.Addr()

	b, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()

	ws := NewWorkspace(cfg, b, logging.NewNop(), nil)

	ctx := context.Background()
	_, err = ws.Put(ctx, "doc", flatList("a", "b"))
	require.NoError(t, err)

	doc, err := ws.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, doc.Elements, 2)
	assert.False(t, mr.Exists(lockPrefix+"lock:doc"), "lock must be released")
}
