package enums

import "fmt"

// RentalStatus tracks the lifecycle of an equipment rental.
type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusOverdue   RentalStatus = "OVERDUE"
	RentalStatusReturned  RentalStatus = "RETURNED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
)

var validRentalStatuses = []RentalStatus{
	RentalStatusActive,
	RentalStatusOverdue,
	RentalStatusReturned,
	RentalStatusCancelled,
}

// ActiveRentalStatuses are the statuses that consume variant capacity.
var ActiveRentalStatuses = []RentalStatus{
	RentalStatusActive,
	RentalStatusOverdue,
}

// String implements fmt.Stringer.
func (r RentalStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RentalStatus.
func (r RentalStatus) IsValid() bool {
	for _, candidate := range validRentalStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (r RentalStatus) IsTerminal() bool {
	return r == RentalStatusReturned || r == RentalStatusCancelled
}

// ParseRentalStatus converts raw input into a RentalStatus.
func ParseRentalStatus(value string) (RentalStatus, error) {
	for _, candidate := range validRentalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental status %q", value)
}
