package shared

import "github.com/google/uuid"

// Nominee implements two-step ownership transfer: the current owner
// nominates a successor, who must claim ownership before it takes
// effect. Components that carry an owner embed Nominee by value.
type Nominee struct {
	owner          uuid.UUID
	nominatedOwner uuid.UUID
}

// NewNominee creates the ownership record with an initial owner
func NewNominee(owner uuid.UUID) Nominee {
	return Nominee{owner: owner}
}

// Owner returns the current owner
func (n *Nominee) Owner() uuid.UUID {
	return n.owner
}

// NominatedOwner returns the pending nominee, or uuid.Nil
func (n *Nominee) NominatedOwner() uuid.UUID {
	return n.nominatedOwner
}

// IsOwner reports whether the principal is the current owner
func (n *Nominee) IsOwner(principal uuid.UUID) bool {
	return principal != uuid.Nil && principal == n.owner
}

// NominateOwner records a pending ownership transfer. Only the current
// owner may nominate; nominating uuid.Nil clears a pending nomination.
func (n *Nominee) NominateOwner(caller, nominee uuid.UUID) error {
	if !n.IsOwner(caller) {
		return ErrUnauthorized
	}
	if nominee == n.owner {
		return NewDomainError("INVALID_NOMINEE", "Nominee is already the owner")
	}
	n.nominatedOwner = nominee
	return nil
}

// ClaimOwnership completes a pending transfer. Only the nominated
// owner may claim.
func (n *Nominee) ClaimOwnership(caller uuid.UUID) error {
	if n.nominatedOwner == uuid.Nil || caller != n.nominatedOwner {
		return ErrUnauthorized
	}
	n.owner = n.nominatedOwner
	n.nominatedOwner = uuid.Nil
	return nil
}
