package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HaPhanBaoMinh/kubepulse/internal/domain"
)

func TestSnapshotIsWellFormed(t *testing.T) {
	r := New(WithSeed(1))
	for i := 0; i < 20; i++ {
		snap, err := r.Snapshot(context.Background())
		require.NoError(t, err)
		require.Len(t, snap.Nodes, len(nodeNames))

		ids := map[string]bool{}
		for _, n := range snap.Nodes {
			require.NotEmpty(t, n.ID)
			require.NotNil(t, n.Memory)
			assert.LessOrEqual(t, n.Metrics.Usage, n.Metrics.Capacity)
			for _, p := range n.Pods {
				require.False(t, ids[p.ID], "pod ids are unique")
				ids[p.ID] = true
				assert.Equal(t, n.ID, p.Node)
				assert.Contains(t, []string{domain.PodRunning, domain.PodPending, domain.PodError}, p.Status)
				assert.GreaterOrEqual(t, p.Metrics.CPU.Usage, int64(0))
			}
		}
	}
}

func TestPodsChurnBetweenSnapshots(t *testing.T) {
	r := New(WithSeed(7), WithNodes(3))
	first, err := r.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Nodes, 3)

	seen := podIDs(first)
	changed := false
	for i := 0; i < 30 && !changed; i++ {
		next, err := r.Snapshot(context.Background())
		require.NoError(t, err)
		changed = !assert.ObjectsAreEqual(seen, podIDs(next))
	}
	assert.True(t, changed)
}

func TestSnapshotHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithSeed(1)).Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithNodesBounds(t *testing.T) {
	assert.Len(t, New(WithNodes(99)).nodes, len(nodeNames))
	assert.Empty(t, New(WithNodes(-1)).nodes)
}

func podIDs(c domain.ClusterData) map[string]bool {
	out := map[string]bool{}
	for _, n := range c.Nodes {
		for _, p := range n.Pods {
			out[p.ID] = true
		}
	}
	return out
}
