package domain

// SpaceStatus is the occupancy state of a hosting space.
type SpaceStatus string

const (
	SpaceStatusAvailable SpaceStatus = "AVAILABLE"
	SpaceStatusOccupied  SpaceStatus = "OCCUPIED"
)

// IsValid checks if the status is a known value.
func (s SpaceStatus) IsValid() bool {
	return s == SpaceStatusAvailable || s == SpaceStatusOccupied
}

// Space is a rack position or container slot offered for hosting.
// Corresponds to spaces table in PostgreSQL.
type Space struct {
	ID         int64
	Name       string
	CapacityKW float64
	Status     SpaceStatus
}

// SpaceTotals is the aggregate of spaces sharing one status.
type SpaceTotals struct {
	Count      int
	CapacityKW float64
}
