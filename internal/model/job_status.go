package model

// JobStatus is the lifecycle state of a job card.
type JobStatus string

const (
	// StatusIdle means the job is booked but the vehicle has not arrived.
	StatusIdle JobStatus = "IDLE"
	// StatusOngoing means the vehicle is on-site and being serviced.
	StatusOngoing JobStatus = "ONGOING"
	// StatusTestDrive means the vehicle is temporarily off-site on a test drive.
	StatusTestDrive JobStatus = "TEST_DRIVE"
	// StatusCompleted means service is done and the vehicle awaits pickup.
	StatusCompleted JobStatus = "COMPLETED"
	// StatusClosed is terminal; the vehicle has left the garage.
	StatusClosed JobStatus = "CLOSED"
)

// IsActive reports whether the status still counts as an open service visit.
func (s JobStatus) IsActive() bool {
	return s == StatusIdle || s == StatusOngoing || s == StatusTestDrive
}

// Valid reports whether s is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusOngoing, StatusTestDrive, StatusCompleted, StatusClosed:
		return true
	}
	return false
}
