package appointment

// transitions is the full lifecycle table. completed and cancelled are
// terminal; a same-state update is not a legal transition either.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// roleMayTransition applies the write policy: staff may confirm and
// complete; cancellation is open to staff and to the owning patient,
// which is checked separately against the appointment row. A medecin's
// write scope is notes only, never status.
func roleMayTransition(role Role, target Status) bool {
	switch target {
	case StatusConfirmed, StatusCompleted:
		return role.Staff()
	case StatusCancelled:
		return role.Staff() || role == RolePatient
	}
	return false
}
