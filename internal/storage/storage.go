package storage

import "balancerStake/internal/model"

// Storage defines a sink for pool sync snapshots.
type Storage interface {
	PutPoolSnapshot(snapshot model.PoolSnapshot) error
}
