package domain

import "time"

// MinerStatus is the local lifecycle state of a hosted miner.
type MinerStatus string

const (
	// MinerStatusAuto marks a miner whose hashrate is managed through the pool.
	MinerStatusAuto      MinerStatus = "AUTO"
	MinerStatusDeploying MinerStatus = "DEPLOYMENT_IN_PROGRESS"
	MinerStatusInactive  MinerStatus = "INACTIVE"
)

// String returns the string representation of MinerStatus.
func (s MinerStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value.
func (s MinerStatus) IsValid() bool {
	return s == MinerStatusAuto || s == MinerStatusDeploying || s == MinerStatusInactive
}

// Miner is a customer-owned machine hosted by the provider.
// Corresponds to miners table in PostgreSQL.
type Miner struct {
	ID        int64
	UserID    int64
	SpaceID   *int64 // nil until racked
	Model     string
	Status    MinerStatus
	CreatedAt time.Time
}
