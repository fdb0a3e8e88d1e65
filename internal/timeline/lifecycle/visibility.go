package lifecycle

import (
	identity "chronicle/internal/identity/models"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
)

// Visibility is the read-path scope for a principal. Stores apply it inside
// the query itself, not as a post-hoc check, so the existence of non-approved
// events never leaks through enumeration.
type Visibility struct {
	// All grants unrestricted reads (admins).
	All bool

	// OwnerID extends the approved-only default with the caller's own events
	// in any status. Zero for anonymous callers.
	OwnerID id.UserID
}

// VisibilityFor derives the read scope from the caller identity:
// admins see everything, authenticated users see approved plus their own,
// everyone else sees approved only.
func VisibilityFor(p identity.Principal) Visibility {
	if p.IsAdmin() {
		return Visibility{All: true}
	}
	if p.Authenticated {
		return Visibility{OwnerID: p.ID}
	}
	return Visibility{}
}

// Allows reports whether a single fetched event falls inside the scope.
// It must agree exactly with the query-time filter the stores build.
func (v Visibility) Allows(e *models.Event) bool {
	if v.All {
		return true
	}
	if e.Status == models.StatusApproved {
		return true
	}
	return !v.OwnerID.IsNil() && e.CreatedBy == v.OwnerID
}
