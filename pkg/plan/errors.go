package plan

import (
	"errors"
	"fmt"
)

// ErrorKind classifies planner failures. All of them are detected before
// any provider call is made, so the caller can fix its configuration and
// run again.
type ErrorKind string

const (
	// KindInvalidZoneList means the zone list was empty after discarding
	// blank entries
	KindInvalidZoneList ErrorKind = "invalid-zone-list"

	// KindInvalidPrefix means the requested subnet prefix length is not
	// strictly finer than the base block, or exceeds the address family
	// maximum
	KindInvalidPrefix ErrorKind = "invalid-prefix"

	// KindAddressSpaceExhausted means the base block cannot supply one
	// public and one private subnet per requested zone
	KindAddressSpaceExhausted ErrorKind = "address-space-exhausted"
)

// PlanningError is returned for any invalid planner input
type PlanningError struct {
	Kind   ErrorKind
	Detail string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("address planning failed (%s): %s", e.Kind, e.Detail)
}

// IsKind reports whether err is, or wraps, a PlanningError of the given
// kind
func IsKind(err error, kind ErrorKind) bool {
	var pe *PlanningError
	return errors.As(err, &pe) && pe.Kind == kind
}
