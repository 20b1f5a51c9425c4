package fleet

import "github.com/edvin/fleetctl/internal/model"

// CapacityRequest holds the requested instance counts. A nil field keeps
// the current value.
type CapacityRequest struct {
	Minimum *int
	Desired *int
	Maximum *int
}

// ClampCapacity merges req into current and keeps min <= desired <= max with
// no negative values. An explicitly requested desired count wins over min and
// max: min drops and max rises to fit it. An explicit min or max wins over the
// unrequested bound.
func ClampCapacity(current model.FleetCapacity, req CapacityRequest) (minimum, desired, maximum int) {
	minimum, desired, maximum = current.Minimum, current.Desired, current.Maximum
	if req.Minimum != nil {
		minimum = *req.Minimum
	}
	if req.Desired != nil {
		desired = *req.Desired
	}
	if req.Maximum != nil {
		maximum = *req.Maximum
	}
	minimum, desired, maximum = max(minimum, 0), max(desired, 0), max(maximum, 0)

	if req.Desired != nil {
		minimum = min(minimum, desired)
		maximum = max(maximum, desired)
		return minimum, desired, maximum
	}

	if minimum > maximum {
		if req.Maximum != nil && req.Minimum == nil {
			minimum = maximum
		} else {
			maximum = minimum
		}
	}
	desired = min(max(desired, minimum), maximum)
	return minimum, desired, maximum
}
