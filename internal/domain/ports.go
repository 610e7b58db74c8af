package domain

import "context"

// SnapshotSource produces full cluster snapshots for the stream server.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (ClusterData, error)
}
